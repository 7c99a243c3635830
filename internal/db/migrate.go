package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// El índice único sobre subject_id es quien resuelve las carreras de primera
// vista: dos inserts concurrentes para el mismo subject dejan exactamente un
// registro y el perdedor recibe la violación de unicidad.
const usersMigration = `
CREATE TABLE IF NOT EXISTS users (
    subject_id text PRIMARY KEY,
    email text NOT NULL,
    display_name text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW()
);
`

// Migrate crea el esquema si no existe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, usersMigration)
	return err
}
