package sqlexec

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/spf13/cast"

	_ "github.com/lib/pq"
)

/**
 * Session is one database connection, the statements of an execution
 * unit all run on the same session so the UDF setup applies to them.
 */
type Session interface {
	Exec(ctx context.Context, query string) error
	/**
	 * Query returns the column titles and at most limit rows,
	 * limit <= 0 means all rows. NULL cells are empty strings.
	 */
	Query(ctx context.Context, query string, limit int) (titles []string, values [][]string, err error)
	Close() error
}

// Connector opens a session per execution unit.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

type sqlxConnector struct {
	db *sqlx.DB
}

// Open connects a database/sql driver.
func Open(driver, dsn string) (Connector, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "open %s", driver)
	}
	return &sqlxConnector{db: db}, nil
}

func NewConnector(db *sqlx.DB) Connector {
	return &sqlxConnector{db: db}
}

func (c *sqlxConnector) Connect(ctx context.Context) (Session, error) {
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &sqlxSession{conn: conn}, nil
}

type sqlxSession struct {
	conn *sqlx.Conn
}

func (s *sqlxSession) Exec(ctx context.Context, query string) error {
	_, err := s.conn.ExecContext(ctx, query)
	return errors.Trace(err)
}

func (s *sqlxSession) Query(ctx context.Context, query string, limit int) ([]string, [][]string, error) {
	rows, err := s.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer rows.Close()

	titles, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	values := make([][]string, 0)
	for rows.Next() {
		if limit > 0 && len(values) >= limit {
			break
		}
		cells, err := rows.SliceScan()
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		row := make([]string, len(cells))
		for i, cell := range cells {
			if b, ok := cell.([]byte); ok {
				row[i] = string(b)
				continue
			}
			row[i] = cast.ToString(cell)
		}
		values = append(values, row)
	}
	return titles, values, errors.Trace(rows.Err())
}

func (s *sqlxSession) Close() error {
	return errors.Trace(s.conn.Close())
}
