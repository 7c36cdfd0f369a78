package peer

import "time"

// schedulerPollInterval bounds how long each Recv poll blocks before
// re-checking whether the connection has closed, mirroring the
// reference's asyncio.sleep(0.1)/asyncio.sleep(0.01) cooperative
// polling cadence in run_client/quic_server.
const schedulerPollInterval = 100 * time.Millisecond
