package commands

import (
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharanvkt/insane-dashboard-v2/access"
	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/dashboard"
	"github.com/sharanvkt/insane-dashboard-v2/db"
	"github.com/sharanvkt/insane-dashboard-v2/domain"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/history"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
	"github.com/sharanvkt/insane-dashboard-v2/pulse/schedule"
)

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().String("as", "", "Identity to act as (defaults to $LPDASH_ACTOR)")
}

// openDatabase opens and migrates a database using the specified path.
// If dbPath is empty, it loads from am config.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.AddDBSymbol(logger.ComponentLogger("db")))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// app holds the components every data command needs.
type app struct {
	cfg      *am.Config
	db       *sql.DB
	resolver *access.Resolver
	recorder *history.Recorder
	service  *dashboard.Service
}

// openApp loads and validates configuration, opens the database and wires
// the resolver, recorder and service together.
func openApp() (*app, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration is invalid (see `lpdash am validate`)")
	}

	table, err := access.NewTable(cfg.Access)
	if err != nil {
		return nil, err
	}

	database, err := openDatabase(cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	resolver := access.NewResolver(table, logger.ComponentLogger("access"))
	recorder := history.NewRecorder(database, domain.NewStore(database), resolver, logger.ComponentLogger("history"))
	service := dashboard.NewService(database, resolver, recorder, logger.ComponentLogger("dashboard"))

	return &app{
		cfg:      cfg,
		db:       database,
		resolver: resolver,
		recorder: recorder,
		service:  service,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// dispatcher builds a scheduler dispatcher sharing the app's recorder.
func (a *app) dispatcher() *schedule.Dispatcher {
	return schedule.NewDispatcher(a.db, a.recorder, schedule.DispatcherConfig{
		BatchSize: a.cfg.GetBatchSize(),
		LeaseTTL:  time.Duration(a.cfg.GetLeaseSeconds()) * time.Second,
		WorkerID:  a.cfg.Scheduler.WorkerID,
	}, logger.ComponentLogger("pulse"))
}

// actorFrom returns the identity the command acts as.
func actorFrom(cmd *cobra.Command) (string, error) {
	as, _ := cmd.Flags().GetString("as")
	if as == "" {
		as = os.Getenv("LPDASH_ACTOR")
	}
	as = strings.TrimSpace(as)
	if as == "" {
		return "", errors.New("an identity is required: pass --as <email> or set LPDASH_ACTOR")
	}
	return as, nil
}

// parseAssignments turns field=value arguments into a sparse update.
func parseAssignments(args []string) (domain.Update, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok {
			return domain.Update{}, errors.Newf("expected field=value, got %q", arg)
		}
		field = strings.TrimSpace(field)
		if _, dup := values[field]; dup {
			return domain.Update{}, errors.Newf("field %q given twice", field)
		}
		values[field] = value
	}
	return domain.NewUpdate(values)
}

// userError renders service errors the way the API would show them, keeping
// internal detail for -v.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsValidationError(err) || errors.IsAccessDenied(err) || errors.IsNotFoundError(err) {
		logger.Logger.Debugw("Command rejected", logger.FieldError, err)
		return errors.New(errors.Message(err))
	}
	return err
}
