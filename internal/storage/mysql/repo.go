package mysql

import (
	"context"
	"database/sql"
	"strings"

	"roomledger/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertRoom(ctx context.Context, rm domain.Room) error {
	_, err := r.db.ExecContext(ctx, upsertRoomSQL,
		rm.ID,
		rm.HotelName,
		rm.Date,
		rm.RoomType,
		rm.Price,
		rm.Capacity,
		valStr(rm.ImageURL),
		valStr(rm.ImageHash),
		rm.Owner,
		valJSON(rm.RawJSON),
	)
	return err
}

func (r *Repo) UpsertRooms(ctx context.Context, rms []domain.Room) error {
	if len(rms) == 0 {
		return nil
	}
	values := make([]string, 0, len(rms))
	args := make([]any, 0, len(rms)*10)
	for _, rm := range rms {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rm.ID,
			rm.HotelName,
			rm.Date,
			rm.RoomType,
			rm.Price,
			rm.Capacity,
			valStr(rm.ImageURL),
			valStr(rm.ImageHash),
			rm.Owner,
			valJSON(rm.RawJSON),
		)
	}
	sqlStr := insertRoomsPrefix + strings.Join(values, ",") + insertRoomsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) LogSkip(ctx context.Context, objectID, reason string) error {
	_, err := r.db.ExecContext(ctx, insertSkipSQL, objectID, reason)
	return err
}

func (r *Repo) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	row := r.db.QueryRowContext(ctx, getRoomSQL, id)
	rm, err := scanRoom(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

func (r *Repo) ListRooms(ctx context.Context, q domain.RoomsQuery) (domain.RoomsPage, error) {
	var (
		where []string
		args  []any
	)
	if q.Owner != nil {
		where = append(where, "owner = ?")
		args = append(args, *q.Owner)
	}
	if q.Since != nil {
		where = append(where, "`date` >= ?")
		args = append(args, *q.Since)
	}
	sqlStr := "SELECT id, hotel_name, `date`, room_type, price, capacity, image_url, image_hash, owner, raw FROM rooms"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	sqlStr += " ORDER BY `date`, id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return domain.RoomsPage{}, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows.Scan)
		if err != nil {
			return domain.RoomsPage{}, err
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return domain.RoomsPage{}, err
	}
	return domain.RoomsPage{Items: out}, nil
}

func scanRoom(scan func(dest ...any) error) (domain.Room, error) {
	var (
		rm        domain.Room
		capacity  uint64
		imageURL  sql.NullString
		imageHash sql.NullString
		rawB      []byte
	)
	if err := scan(
		&rm.ID,
		&rm.HotelName,
		&rm.Date,
		&rm.RoomType,
		&rm.Price,
		&capacity,
		&imageURL,
		&imageHash,
		&rm.Owner,
		&rawB,
	); err != nil {
		return domain.Room{}, err
	}
	if capacity > 255 {
		capacity = 255
	}
	rm.Capacity = uint8(capacity)
	if imageURL.Valid {
		rm.ImageURL = imageURL.String
	}
	if imageHash.Valid {
		rm.ImageHash = imageHash.String
	}
	if len(rawB) > 0 {
		rm.RawJSON = rawB
	}
	return rm, nil
}
