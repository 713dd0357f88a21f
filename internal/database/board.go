package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/astralis-game/server/internal/models"
)

// InsertMap stores a generated board header row.
func InsertMap(ctx context.Context, m *models.GameMap) error {
	_, err := DB.Exec(ctx, `
		INSERT INTO maps (id, match_id, row_count, col_count)
		VALUES ($1, $2, $3, $4)`,
		m.ID, m.MatchID, m.RowCount, m.ColCount)
	if err != nil {
		return fmt.Errorf("insert map %s: %w", m.ID, err)
	}
	return nil
}

// GetMap loads the board header of a match.
func GetMap(ctx context.Context, matchID uuid.UUID) (*models.GameMap, error) {
	m := &models.GameMap{}
	err := DB.QueryRow(ctx, `
		SELECT id, match_id, row_count, col_count FROM maps WHERE match_id = $1`, matchID).
		Scan(&m.ID, &m.MatchID, &m.RowCount, &m.ColCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get map for match %s: %w", matchID, err)
	}
	return m, nil
}

// InsertTiles bulk-loads a freshly generated board via COPY.
func InsertTiles(ctx context.Context, tiles []*models.Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	rows := make([][]any, len(tiles))
	for i, t := range tiles {
		var unitID, ownerID *uuid.UUID
		var unitType *models.UnitType
		if t.Unit != nil {
			unitID = &t.Unit.ID
			ownerID = t.Unit.OwnerID
			unitType = &t.Unit.Type
		}
		rows[i] = []any{t.ID, t.MapID, t.Row, t.Col, t.Terrain, t.Visible, unitID, ownerID, unitType}
	}
	_, err := DB.CopyFrom(ctx, pgx.Identifier{"tiles"},
		[]string{"id", "map_id", "grid_row", "grid_col", "terrain", "visible", "unit_id", "unit_owner_id", "unit_type"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy tiles: %w", err)
	}
	return nil
}

// GetTiles loads a board's tiles keyed by coordinate.
func GetTiles(ctx context.Context, mapID uuid.UUID) (map[string]*models.Tile, error) {
	rows, err := DB.Query(ctx, `
		SELECT id, map_id, grid_row, grid_col, terrain, visible, unit_id, unit_owner_id, unit_type
		FROM tiles WHERE map_id = $1`, mapID)
	if err != nil {
		return nil, fmt.Errorf("get tiles for map %s: %w", mapID, err)
	}
	defer rows.Close()

	tiles := make(map[string]*models.Tile)
	for rows.Next() {
		t := &models.Tile{}
		var unitID, ownerID *uuid.UUID
		var unitType *models.UnitType
		if err := rows.Scan(&t.ID, &t.MapID, &t.Row, &t.Col, &t.Terrain, &t.Visible, &unitID, &ownerID, &unitType); err != nil {
			return nil, fmt.Errorf("scan tile: %w", err)
		}
		if unitID != nil && unitType != nil {
			t.Unit = &models.Unit{ID: *unitID, OwnerID: ownerID, Type: *unitType}
		}
		tiles[t.Key()] = t
	}
	return tiles, rows.Err()
}
