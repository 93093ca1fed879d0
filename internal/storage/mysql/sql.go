package mysql

// Note: `date` is reserved-ish; keep it quoted everywhere.

const upsertRoomSQL = `
INSERT INTO rooms
  (id, hotel_name, ` + "`date`" + `, room_type, price, capacity, image_url, image_hash, owner, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  hotel_name = VALUES(hotel_name),
  ` + "`date`" + `     = VALUES(` + "`date`" + `),
  room_type  = VALUES(room_type),
  price      = VALUES(price),
  capacity   = VALUES(capacity),
  image_url  = VALUES(image_url),
  image_hash = VALUES(image_hash),
  owner      = VALUES(owner),
  raw        = VALUES(raw),
  updated_at = CURRENT_TIMESTAMP
`

const insertRoomsPrefix = "INSERT INTO rooms\n  (id, hotel_name, `date`, room_type, price, capacity, image_url, image_hash, owner, raw)\nVALUES "

const insertRoomsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  hotel_name = VALUES(hotel_name),\n" +
	"  `date`     = VALUES(`date`),\n" +
	"  room_type  = VALUES(room_type),\n" +
	"  price      = VALUES(price),\n" +
	"  capacity   = VALUES(capacity),\n" +
	"  image_url  = VALUES(image_url),\n" +
	"  image_hash = VALUES(image_hash),\n" +
	"  owner      = VALUES(owner),\n" +
	"  raw        = VALUES(raw),\n" +
	"  updated_at = CURRENT_TIMESTAMP\n"

const insertSkipSQL = `
INSERT INTO sync_skips (object_id, reason)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE seen_at = CURRENT_TIMESTAMP, reason = VALUES(reason)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getRoomSQL = `
SELECT id, hotel_name, ` + "`date`" + `, room_type, price, capacity, image_url, image_hash, owner, raw
FROM rooms
WHERE id = ?
`
