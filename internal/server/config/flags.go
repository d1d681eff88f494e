package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophwallet/internal/flagx"
)

// parseFlags applies the short command-line flags:
//
//	-g string   gRPC bind address (e.g. ":50051")
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-k string   session signing key (hex)
//	-r string   recovery signing key (hex)
//	-n string   Ethereum JSON-RPC URL
//	-f string   proxy factory contract address
//	-w int      account receipt window, minutes
//	-u int      unlock receipt window, minutes
//	-v int      forward receipt window, minutes
//	-l string   log level
//
// Only these flags are parsed; -c/-config and -e/-env are handled earlier.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-g", "-a", "-d", "-k", "-r", "-n", "-f", "-w", "-u", "-v", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionKey, "k", config.SessionKey, "session signing key")
	fs.StringVar(&config.RecoveryKey, "r", config.RecoveryKey, "recovery signing key")
	fs.StringVar(&config.EthRPCURL, "n", config.EthRPCURL, "ethereum rpc url")
	fs.StringVar(&config.FactoryAddress, "f", config.FactoryAddress, "proxy factory address")

	accountWindow := fs.Int("w", int(config.AccountReceiptWindow.Minutes()), "account receipt window (in minutes)")
	unlockWindow := fs.Int("u", int(config.UnlockReceiptWindow.Minutes()), "unlock receipt window (in minutes)")
	forwardWindow := fs.Int("v", int(config.ForwardReceiptWindow.Minutes()), "forward receipt window (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccountReceiptWindow = time.Duration(*accountWindow) * time.Minute
	config.UnlockReceiptWindow = time.Duration(*unlockWindow) * time.Minute
	config.ForwardReceiptWindow = time.Duration(*forwardWindow) * time.Minute
}
