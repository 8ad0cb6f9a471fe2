package logger

import (
	"os"

	"github.com/pkg/errors"
)

// SubsystemTags holds the known subsystem tags used across the module.
// Each field is the short tag printed in log lines for that subsystem.
var SubsystemTags = struct {
	KASD string // main process
	IBLT string // set-reconciliation primitive
	GRPH string // graphene encoder/decoder
	MPSY string // mempool sync FSMs
	SBLK string // subblock DAG
	KOS  string // k-order-statistic PoW
}{
	KASD: "KASD",
	IBLT: "IBLT",
	GRPH: "GRPH",
	MPSY: "MPSY",
	SBLK: "SBLK",
	KOS:  "KOS ",
}

var defaultBackend = NewBackend()

func init() {
	_ = defaultBackend.AddLogWriter(stdoutWriter{}, LevelInfo)
	_ = defaultBackend.Run()
}

type stdoutWriter struct{}

func (stdoutWriter) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutWriter) Close() error                { return nil }

// Get returns the logger for the given subsystem tag, creating it against
// the module's shared default backend.
func Get(subsystemTag string) (*Logger, error) {
	if subsystemTag == "" {
		return nil, errors.New("subsystem tag must not be empty")
	}
	l := defaultBackend.Logger(subsystemTag)
	l.SetLevel(LevelInfo)
	return l, nil
}
