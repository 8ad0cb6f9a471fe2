// Package config parses the command-line and file configuration recognized
// by the mempool-sync/subblock-DAG core, following the same
// jessevdk/go-flags convention the rest of this module's ancestry uses.
package config

import (
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/hexmire/subtail/app/appmessage"
	"github.com/hexmire/subtail/protocol/mempoolsync"
)

const (
	defaultConfigFilename         = "subtail.conf"
	defaultSyncMempoolWithPeers   = true
	defaultMempoolSyncMinVersion  = 1
	defaultMempoolSyncMaxVersion  = appmessage.MempoolSyncProtocolVersion
	defaultMaxMempoolMillionBytes = 300
	defaultBobtailK               = 30
	defaultIBLTEntropy            = 13
	defaultProfilePort            = ""
)

// DefaultHomeDir is the default directory this daemon reads its
// configuration file from.
var DefaultHomeDir = defaultHomeDir()

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".subtail")
}

// Config is the full set of command-line and file options this daemon
// recognizes. The mempool-sync-relevant fields translate directly into a
// mempoolsync.Config via ToMempoolSyncConfig.
type Config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	Listeners   []string `long:"listen" description:"Add an interface/port to listen for connections"`

	SyncMempoolWithPeers        bool    `long:"syncmempoolwithpeers" description:"Serve and initiate mempool synchronization sessions with peers"`
	MempoolSyncMinVersionSupported uint64 `long:"mempoolsyncminversion" description:"Minimum mempool-sync protocol version this node will negotiate"`
	MempoolSyncMaxVersionSupported uint64 `long:"mempoolsyncmaxversion" description:"Maximum mempool-sync protocol version this node will negotiate"`
	MaxMempoolMillionBytes      uint64  `long:"maxmempool" description:"Maximum size of mempool in millions of bytes"`
	MinRelayTxFeeSatoshiPerK    uint64  `long:"minrelaytxfee" description:"Minimum relay fee rate, in satoshi per 1000 bytes, advertised to peers"`
	BobtailK                    int     `long:"bobtailk" description:"k for k-order-statistic proof-of-work and minimum viable subblock DAG component size"`
	IBLTEntropy                 float64 `long:"ibltentropy" description:"Entropy constant fed into GrapheneSet IBLT sizing"`
	ProfilePort                 string  `long:"profile" description:"Enable HTTP profiling server on the given port"`
}

func defaultConfig() Config {
	return Config{
		ConfigFile:                     DefaultConfigFile(),
		DataDir:                       filepath.Join(DefaultHomeDir, "data"),
		SyncMempoolWithPeers:           defaultSyncMempoolWithPeers,
		MempoolSyncMinVersionSupported: defaultMempoolSyncMinVersion,
		MempoolSyncMaxVersionSupported: defaultMempoolSyncMaxVersion,
		MaxMempoolMillionBytes:         defaultMaxMempoolMillionBytes,
		BobtailK:                       defaultBobtailK,
		IBLTEntropy:                    defaultIBLTEntropy,
		ProfilePort:                    defaultProfilePort,
	}
}

// Load parses command-line arguments (and, if present, a configuration
// file) into a Config, applying defaults for anything left unset.
func Load(args []string) (*Config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", remaining)
	}

	if cfg.ConfigFile != "" {
		fileParser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(fileParser).ParseFile(cfg.ConfigFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Parse command line options again to ensure they take precedence over
	// anything just read from the configuration file.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ToMempoolSyncConfig projects the subset of Config the mempoolsync package
// recognizes into its own Config type.
func (c *Config) ToMempoolSyncConfig() mempoolsync.Config {
	return mempoolsync.Config{
		SyncMempoolWithPeers: c.SyncMempoolWithPeers,
		MinVersionSupported:  c.MempoolSyncMinVersionSupported,
		MaxVersionSupported:  c.MempoolSyncMaxVersionSupported,
		MaxMempoolBytes:      c.MaxMempoolMillionBytes * 1_000_000,
		MinFeePerK:           c.MinRelayTxFeeSatoshiPerK,
		BobtailK:             c.BobtailK,
		IBLTEntropy:          c.IBLTEntropy,
	}
}

// DefaultConfigFile returns the configuration file path used when none is
// specified on the command line.
func DefaultConfigFile() string {
	return filepath.Join(DefaultHomeDir, defaultConfigFilename)
}
