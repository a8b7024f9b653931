package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rootFlags struct {
	configPath string
	logLevel   string
	mongoURI   string
	database   string
}

// NewRootCmd creates the souqctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.Stdin, os.Stdout, nil)
}

// newRootCmd builds the tree on in/out. A non-nil connect replaces the
// MongoDB connection (tests).
func newRootCmd(in io.Reader, out io.Writer, connect func(context.Context) (Service, func(context.Context) error, error)) *cobra.Command {
	var flags rootFlags
	e := &env{}

	root := &cobra.Command{
		Use:   "souqctl",
		Short: "SouqHub operator and terminal client",
		Long:  "souqctl signs in to SouqHub, searches listings from the terminal and runs operator tasks.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(flags.logLevel)
			if err != nil {
				return err
			}
			path := flags.configPath
			if path == "" {
				dir, err := configDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, "config.yaml")
			}
			p, err := LoadProfile(path)
			if err != nil {
				return err
			}
			p.ApplyEnv(os.Getenv)
			if flags.mongoURI != "" {
				p.MongoURI = flags.mongoURI
			}
			if flags.database != "" {
				p.MongoDatabase = flags.database
			}
			*e = *newEnv(p, logger, in, out)
			if connect != nil {
				e.connect = connect
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close(context.Background())
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default ~/.souqhub/config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.mongoURI, "mongo-uri", "", "MongoDB URI (overrides config and SOUQHUB_MONGO_URI)")
	root.PersistentFlags().StringVar(&flags.database, "database", "", "MongoDB database name")

	root.AddCommand(
		newSearchCmd(e),
		newLoginCmd(e),
		newSignupCmd(e),
		newLogoutCmd(e),
		newWhoamiCmd(e),
		newAdminCmd(e),
		newStorageCmd(e),
	)
	return root
}

// newLogger writes human-readable logs to stderr at level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}
