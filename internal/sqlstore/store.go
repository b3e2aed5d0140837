// Package sqlstore is a database/sql backed favorites store for SQLite and
// PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
)

type Dialect struct {
	Driver string
	Schema string
	Insert string
	List   string
	Find   string
	Delete string
}

var SQLite = Dialect{
	Driver: "sqlite3",
	Schema: `CREATE TABLE IF NOT EXISTS favorites (
		user_id INTEGER NOT NULL,
		recipe_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		image_url TEXT,
		PRIMARY KEY (user_id, recipe_id)
	)`,
	Insert: `INSERT OR IGNORE INTO favorites (user_id, recipe_id, title, image_url) VALUES (?, ?, ?, ?)`,
	List:   `SELECT user_id, recipe_id, title, image_url FROM favorites WHERE user_id = ? ORDER BY rowid`,
	Find:   `SELECT user_id, recipe_id, title, image_url FROM favorites WHERE user_id = ? AND recipe_id = ?`,
	Delete: `DELETE FROM favorites WHERE user_id = ? AND recipe_id = ?`,
}

var Postgres = Dialect{
	Driver: "postgres",
	Schema: `CREATE TABLE IF NOT EXISTS favorites (
		user_id BIGINT NOT NULL,
		recipe_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		image_url TEXT,
		PRIMARY KEY (user_id, recipe_id)
	)`,
	Insert: `INSERT INTO favorites (user_id, recipe_id, title, image_url) VALUES ($1, $2, $3, $4) ON CONFLICT (user_id, recipe_id) DO NOTHING`,
	List:   `SELECT user_id, recipe_id, title, image_url FROM favorites WHERE user_id = $1 ORDER BY recipe_id`,
	Find:   `SELECT user_id, recipe_id, title, image_url FROM favorites WHERE user_id = $1 AND recipe_id = $2`,
	Delete: `DELETE FROM favorites WHERE user_id = $1 AND recipe_id = $2`,
}

// FavoriteSQLService relies on the (user_id, recipe_id) primary key for
// atomic insert-if-absent; no application-level locking is needed.
type FavoriteSQLService struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ data.FavoriteRepository = (*FavoriteSQLService)(nil)

// Open connects and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*FavoriteSQLService, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	if dialect.Driver == SQLite.Driver {
		// a single writer avoids SQLITE_BUSY under concurrent inserts
		db.SetMaxOpenConns(1)
	}
	store := &FavoriteSQLService{DB: db, Dialect: dialect}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (fs *FavoriteSQLService) Migrate(ctx context.Context) error {
	if _, err := fs.DB.ExecContext(ctx, fs.Dialect.Schema); err != nil {
		return fmt.Errorf("apply favorites schema: %w", err)
	}
	return nil
}

func (fs *FavoriteSQLService) Close() error {
	return fs.DB.Close()
}

func _nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func _scanFavorite(row scanner) (data.Favorite, error) {
	var fav data.Favorite
	var image sql.NullString
	if err := row.Scan(&fav.UserID, &fav.RecipeID, &fav.Title, &image); err != nil {
		return fav, err
	}
	if image.Valid {
		fav.ImageURL = &image.String
	}
	return fav, nil
}

func (fs *FavoriteSQLService) InsertIfAbsent(ctx context.Context, favorite data.Favorite) error {
	_, err := fs.DB.ExecContext(ctx, fs.Dialect.Insert, favorite.UserID, favorite.RecipeID, favorite.Title, _nullable(favorite.ImageURL))
	if err != nil {
		return exceptions.StorageFailure("insert favorite", err)
	}
	return nil
}

func (fs *FavoriteSQLService) ListFor(ctx context.Context, userID int64) ([]data.Favorite, error) {
	rows, err := fs.DB.QueryContext(ctx, fs.Dialect.List, userID)
	if err != nil {
		return nil, exceptions.StorageFailure("list favorites", err)
	}
	defer rows.Close()
	favorites := make([]data.Favorite, 0)
	for rows.Next() {
		fav, err := _scanFavorite(rows)
		if err != nil {
			return nil, exceptions.StorageFailure("list favorites", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, exceptions.StorageFailure("list favorites", err)
	}
	return favorites, nil
}

func (fs *FavoriteSQLService) Find(ctx context.Context, userID int64, recipeID int64) (data.Favorite, error) {
	fav, err := _scanFavorite(fs.DB.QueryRowContext(ctx, fs.Dialect.Find, userID, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return data.Favorite{}, exceptions.NotFound("favorite", strconv.FormatInt(recipeID, 10))
	}
	if err != nil {
		return data.Favorite{}, exceptions.StorageFailure("find favorite", err)
	}
	return fav, nil
}

func (fs *FavoriteSQLService) Delete(ctx context.Context, userID int64, recipeID int64) error {
	if _, err := fs.DB.ExecContext(ctx, fs.Dialect.Delete, userID, recipeID); err != nil {
		return exceptions.StorageFailure("delete favorite", err)
	}
	return nil
}
