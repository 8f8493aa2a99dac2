// Package testutil provides shared test helpers and fixtures for JANE.
//
// Philosophy:
// - Prefer real SQLite and real files over mocks for storage.
// - Mock only the OS boundary (process launches, speech, AI backends).
// - Register cleanup via t.Cleanup so tests stay leak-free.
//
// Most controller tests start with:
//
//	launcher := testutil.NewMockLauncher()
//	speaker := &testutil.SpeakerSpy{}
//	notes := &testutil.NoteSpy{}
package testutil
