package uri_test

import (
	"flag"
	"log/slog"
	"testing"

	"go.uber.org/goleak"

	"github.com/ghettovoice/gocups/internal/log"
)

var testLog = flag.String("testlog", "", "test logger: \"def\" for the console logger, \"dev\" for the developer logger")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	switch *testLog {
	case "def":
		return log.Def
	case "dev":
		return log.Dev
	}
	return log.Noop
}
