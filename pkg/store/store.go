// Package store persists services and variables in Postgres.
//
// The tables are created by pkg/migrator. Variables keep the order they were
// added in through an explicit position column, which is the order every
// generator emits them in.
package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pthm/envgen/pkg/migrator"
	"github.com/pthm/envgen/pkg/schema"
)

var (
	// ErrServiceNotFound is returned when a service ID matches no row.
	ErrServiceNotFound = errors.New("envgen/store: service not found")
	// ErrDuplicateKey is returned when a variable key already exists in its service.
	ErrDuplicateKey = errors.New("envgen/store: duplicate variable key")
	// ErrDuplicateService is returned when a service ID is already taken.
	ErrDuplicateService = errors.New("envgen/store: duplicate service id")
)

// Postgres error codes the store translates into sentinels.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Execer is the database handle the store needs. *sql.DB, *sql.Tx and
// *sql.Conn all satisfy it.
type Execer = migrator.Execer

// Store reads and writes services and variables.
type Store struct {
	db     Execer
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Store backed by db.
func New(db Execer, opts ...Option) *Store {
	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListServices returns every service in position order.
func (s *Store) ListServices(ctx context.Context) ([]schema.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description
		FROM envgen_services
		ORDER BY position, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "listing services")
	}
	defer func() { _ = rows.Close() }()

	var services []schema.Service
	for rows.Next() {
		var svc schema.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description); err != nil {
			return nil, errors.Wrap(err, "scanning service")
		}
		services = append(services, svc)
	}
	return services, errors.Wrap(rows.Err(), "listing services")
}

// GetService returns one service.
func (s *Store) GetService(ctx context.Context, id string) (schema.Service, error) {
	var svc schema.Service
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description
		FROM envgen_services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Service{}, errors.Wrapf(ErrServiceNotFound, "%q", id)
	}
	if err != nil {
		return schema.Service{}, errors.Wrapf(err, "getting service %q", id)
	}
	return svc, nil
}

// ListVariables returns the variables of one service in insertion order.
// A stored type outside the enum is returned as-is; generators skip such
// variables and `envgen doctor` reports them.
func (s *Store) ListVariables(ctx context.Context, serviceID string) ([]schema.Variable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, default_value, required, type
		FROM envgen_variables
		WHERE service_id = $1
		ORDER BY position
	`, serviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing variables of %q", serviceID)
	}
	defer func() { _ = rows.Close() }()

	var vars []schema.Variable
	for rows.Next() {
		var (
			v   schema.Variable
			typ string
		)
		if err := rows.Scan(&v.Key, &v.DefaultValue, &v.Required, &typ); err != nil {
			return nil, errors.Wrap(err, "scanning variable")
		}
		v.Type = schema.VariableType(typ)
		vars = append(vars, v)
	}
	return vars, errors.Wrapf(rows.Err(), "listing variables of %q", serviceID)
}

// CreateService inserts a service at the end of the list. An empty ID is
// replaced by a random UUID. The stored record is returned.
func (s *Store) CreateService(ctx context.Context, svc schema.Service) (schema.Service, error) {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO envgen_services (id, name, description, position)
		SELECT $1, $2, $3, COALESCE(MAX(position), -1) + 1
		FROM envgen_services
	`, svc.ID, svc.Name, svc.Description)
	if err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return schema.Service{}, errors.Wrapf(ErrDuplicateService, "%q", svc.ID)
		}
		return schema.Service{}, errors.Wrapf(err, "creating service %q", svc.ID)
	}
	s.logger.Debug("service created", zap.String("service_id", svc.ID), zap.String("name", svc.Name))
	return svc, nil
}

// RenameService changes a service's display name.
func (s *Store) RenameService(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE envgen_services SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return errors.Wrapf(err, "renaming service %q", id)
	}
	return requireAffected(res, id)
}

// DeleteService removes a service. Its variables go with it.
func (s *Store) DeleteService(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM envgen_services WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "deleting service %q", id)
	}
	return requireAffected(res, id)
}

// AddVariable appends a variable to a service.
func (s *Store) AddVariable(ctx context.Context, serviceID string, v schema.Variable) error {
	if !v.Type.Valid() {
		return errors.Wrapf(schema.ErrUnknownVariableType, "variable %q: %q", v.Key, v.Type)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO envgen_variables (service_id, key, default_value, required, type, position)
		SELECT $1, $2, $3, $4, $5, COALESCE(MAX(position), -1) + 1
		FROM envgen_variables
		WHERE service_id = $1
	`, serviceID, v.Key, v.DefaultValue, v.Required, string(v.Type))
	switch {
	case err == nil:
		return nil
	case isPQCode(err, pqUniqueViolation):
		return errors.Wrapf(ErrDuplicateKey, "%s.%s", serviceID, v.Key)
	case isPQCode(err, pqForeignKeyViolation):
		return errors.Wrapf(ErrServiceNotFound, "%q", serviceID)
	default:
		return errors.Wrapf(err, "adding variable %s.%s", serviceID, v.Key)
	}
}

// ImportModel writes a whole model. Services are upserted by ID in model
// order and each imported service's variables are replaced. Services not in
// m are left alone. The import is atomic when db can begin transactions.
func (s *Store) ImportModel(ctx context.Context, m *schema.Model) error {
	if err := schema.Validate(m); err != nil {
		return err
	}

	if txer, ok := s.db.(migrator.TxBeginner); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "starting transaction")
		}
		defer func() { _ = tx.Rollback() }()

		if err := s.importModel(ctx, tx, m); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, "committing import")
		}
	} else if err := s.importModel(ctx, s.db, m); err != nil {
		return err
	}

	s.logger.Info("model imported", zap.Int("services", len(m.Services)))
	return nil
}

func (s *Store) importModel(ctx context.Context, db Execer, m *schema.Model) error {
	for pos, svc := range m.Services {
		_, err := db.ExecContext(ctx, `
			INSERT INTO envgen_services (id, name, description, position)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, description = EXCLUDED.description, position = EXCLUDED.position
		`, svc.ID, svc.Name, svc.Description, pos)
		if err != nil {
			return errors.Wrapf(err, "upserting service %q", svc.ID)
		}

		if _, err := db.ExecContext(ctx, `DELETE FROM envgen_variables WHERE service_id = $1`, svc.ID); err != nil {
			return errors.Wrapf(err, "clearing variables of %q", svc.ID)
		}

		for vpos, v := range m.Variables[svc.ID] {
			_, err := db.ExecContext(ctx, `
				INSERT INTO envgen_variables (service_id, key, default_value, required, type, position)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, svc.ID, v.Key, v.DefaultValue, v.Required, string(v.Type), vpos)
			if err != nil {
				return errors.Wrapf(err, "inserting variable %s.%s", svc.ID, v.Key)
			}
		}
		s.logger.Debug("service imported",
			zap.String("service_id", svc.ID),
			zap.Int("variables", len(m.Variables[svc.ID])),
		)
	}
	return nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrServiceNotFound, "%q", id)
	}
	return nil
}

// isPQCode reports whether err carries the given SQLSTATE. Both lib/pq and
// pgx drivers are recognised.
func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
