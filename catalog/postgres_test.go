package catalog_test

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func dropTable(ctx context.Context, url, table string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table))
	return err
}
