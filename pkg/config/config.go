// Package config holds server-wide settings loaded from command-line flags,
// plus the defaults applied to every table.Config the server constructs.
// Grounded on the teacher's cmd/pokersrv/main.go flag-driven bootstrap
// (host/port/db-path/debug-level flags read directly into local variables),
// generalized into a struct so cmd/pokerd can pass one value around instead
// of loose variables.
package config

import (
	"flag"
	"time"

	"github.com/opencardroom/pokerd/pkg/table"
)

// Server holds process-wide settings independent of any one table.
type Server struct {
	ListenAddr string
	DBPath     string
	DebugLevel string

	DefaultTurnBudget     time.Duration
	DefaultDisconnectGrace time.Duration
	DefaultMPStepDeadline time.Duration
}

// Parse reads the server's flags from args (typically os.Args[1:]),
// following the teacher's flag.StringVar/flag.IntVar bootstrap style.
func Parse(args []string) (Server, error) {
	fs := flag.NewFlagSet("pokerd", flag.ContinueOnError)

	var (
		listenAddr   string
		dbPath       string
		debugLevel   string
		turnBudgetMs int
		discGraceMs  int
		mpStepMs     int
	)
	fs.StringVar(&listenAddr, "listen", "127.0.0.1:8080", "address to listen for websocket connections on")
	fs.StringVar(&dbPath, "db", "pokerd.sqlite", "path to the sqlite persistence database")
	fs.StringVar(&debugLevel, "debuglevel", "info", "logging level: trace, debug, info, warn, error")
	fs.IntVar(&turnBudgetMs, "turnbudgetms", 20000, "default per-turn decision budget in milliseconds")
	fs.IntVar(&discGraceMs, "disconnectgracems", 60000, "default disconnect removal grace period in milliseconds")
	fs.IntVar(&mpStepMs, "mpstepms", 30000, "default Mental Poker per-step deadline in milliseconds")

	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}

	return Server{
		ListenAddr:             listenAddr,
		DBPath:                 dbPath,
		DebugLevel:             debugLevel,
		DefaultTurnBudget:      time.Duration(turnBudgetMs) * time.Millisecond,
		DefaultDisconnectGrace: time.Duration(discGraceMs) * time.Millisecond,
		DefaultMPStepDeadline:  time.Duration(mpStepMs) * time.Millisecond,
	}, nil
}

// TableDefaults returns a table.Config seeded with this server's defaults;
// callers override ID/DisplayName/blinds/seats/buy-ins/MentalPoker per table.
func (s Server) TableDefaults() table.Config {
	return table.Config{
		TurnBudget:      s.DefaultTurnBudget,
		DisconnectGrace: s.DefaultDisconnectGrace,
		MPStepDeadline:  s.DefaultMPStepDeadline,
	}
}
