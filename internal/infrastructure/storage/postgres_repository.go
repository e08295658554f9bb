package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/ports"
)

const pageSize = 200

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists listings into Postgres keyed by slug.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ListingRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindBySlug loads a single listing.
func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (domain.Listing, bool, error) {
	query, args, err := selectListings().Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return domain.Listing{}, false, fmt.Errorf("build find: %w", err)
	}

	listing, err := scanListing(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, false, nil
	}
	if err != nil {
		return domain.Listing{}, false, fmt.Errorf("find %s: %w", slug, err)
	}
	return listing, true, nil
}

// Upsert inserts the listing or merges it into the stored row. Absent
// fields keep the stored value; coordinates are never written.
func (r *PostgresRepository) Upsert(ctx context.Context, listing domain.Listing) (bool, error) {
	query, args, err := upsertQuery(listing)
	if err != nil {
		return false, err
	}

	var created bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&created); err != nil {
		return false, fmt.Errorf("upsert %s: %w", listing.Slug, err)
	}
	return created, nil
}

// MissingCoordinates yields listings without latitude, paging by id.
func (r *PostgresRepository) MissingCoordinates(ctx context.Context) iter.Seq2[domain.Listing, error] {
	return r.pages(ctx, sq.Eq{"latitude": nil})
}

// MissingState yields listings with no state code stored.
func (r *PostgresRepository) MissingState(ctx context.Context) iter.Seq2[domain.Listing, error] {
	return r.pages(ctx, sq.Or{sq.Eq{"estado": nil}, sq.Eq{"estado": ""}})
}

// UpdateCoordinates writes latitude and longitude only.
func (r *PostgresRepository) UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error {
	return r.update(ctx, id, map[string]any{"latitude": lat, "longitude": lon})
}

// UpdateState writes the state code only.
func (r *PostgresRepository) UpdateState(ctx context.Context, id int64, state string) error {
	return r.update(ctx, id, map[string]any{"estado": state})
}

func (r *PostgresRepository) update(ctx context.Context, id int64, set map[string]any) error {
	query, args, err := psql.Update(listingsTable).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update listing %d: %w", id, err)
	}
	return nil
}

// pages reads matching rows in id order one page at a time so callers can
// update rows between pages without holding a cursor open.
func (r *PostgresRepository) pages(ctx context.Context, pred sq.Sqlizer) iter.Seq2[domain.Listing, error] {
	return func(yield func(domain.Listing, error) bool) {
		var lastID int64
		for {
			page, err := r.page(ctx, pred, lastID)
			if err != nil {
				yield(domain.Listing{}, err)
				return
			}
			for _, listing := range page {
				if !yield(listing, nil) {
					return
				}
				lastID = listing.ID
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}

func (r *PostgresRepository) page(ctx context.Context, pred sq.Sqlizer, after int64) ([]domain.Listing, error) {
	query, args, err := selectListings().
		Where(pred).
		Where(sq.Gt{"id": after}).
		OrderBy("id").
		Limit(pageSize).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}

	var out []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, listing)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return out, nil
}

func selectListings() sq.SelectBuilder {
	names := []string{"id", "slug"}
	for _, c := range listingColumns {
		names = append(names, c.name)
	}
	names = append(names, "latitude", "longitude")
	return psql.Select(names...).From(listingsTable)
}

func upsertQuery(listing domain.Listing) (string, []any, error) {
	if listing.Slug == "" {
		return "", nil, fmt.Errorf("upsert: listing has no slug")
	}

	values := map[string]any{"slug": listing.Slug}
	merges := make([]string, 0, len(listingColumns))
	for _, c := range listingColumns {
		values[c.name] = c.value(&listing)
		merges = append(merges, fmt.Sprintf("%[1]s = COALESCE(EXCLUDED.%[1]s, %[2]s.%[1]s)", c.name, listingsTable))
	}

	query, args, err := psql.Insert(listingsTable).
		SetMap(values).
		Suffix("ON CONFLICT (slug) DO UPDATE SET " + strings.Join(merges, ", ") + " RETURNING (xmax = 0)").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build upsert: %w", err)
	}
	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (domain.Listing, error) {
	var listing domain.Listing
	dest := []any{&listing.ID, &listing.Slug}
	for _, c := range listingColumns {
		dest = append(dest, c.dest(&listing))
	}
	dest = append(dest, floatDest{&listing.Latitude}, floatDest{&listing.Longitude})

	if err := row.Scan(dest...); err != nil {
		return domain.Listing{}, err
	}
	listing.NumericID = digitsOnly(listing.Number)
	return listing, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
