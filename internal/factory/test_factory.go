package factory

import (
	"time"

	"github.com/sembrant/chatdir/internal/dependencies/mocks"
	"github.com/sembrant/chatdir/internal/store/memory"
	"github.com/sembrant/chatdir/internal/testutil"
)

// TestApp extends App with test-specific helpers.
type TestApp struct {
	*App

	// MockClock controls time for suspension tests.
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing: in-memory store,
// mocked clock, discarded logs.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	app := newWithDependencies(memory.New(), mockClock, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}
