// Package testutil provides fakes and fixtures for testing dataprov
// components.
//
// Key components:
//   - Environment: a temp dataset root plus an in-memory cloud
//   - StaticFetcher: serves fixed bodies by URL and records requests
//   - MockFetcher: testify mock for call-level expectations
//   - RecordingCodec / RecordingTransport: count calls on real collaborators
//
// Datasets under test run against the real filesystem inside t.TempDir();
// only the network and the cloud are faked.
package testutil
