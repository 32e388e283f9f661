package sqlite

const (
	insertVideoQuery = `
        INSERT INTO videos (
            id, filename, original_name, duration_seconds,
            width, height, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	insertSegmentQuery = `
        INSERT INTO segments (
            video_id, start_offset_seconds, duration_seconds, storage_path
        ) VALUES (?, ?, ?, ?)
    `

	insertCueQuery = `
        INSERT INTO cues (video_id, text, start_ms, end_ms)
        VALUES (?, ?, ?, ?)
    `

	getVideoQuery = `
        SELECT id, filename, original_name, duration_seconds,
               width, height, created_at
        FROM videos WHERE id = ?
    `

	// Result ordering is a correctness contract: ascending video identity,
	// then ascending start time within a video.
	searchExactQuery = `
        SELECT c.video_id, c.text, c.start_ms, c.end_ms,
               v.filename, v.original_name
        FROM cues c
        JOIN videos v ON v.id = c.video_id
        WHERE c.text = ?
        ORDER BY c.video_id, c.start_ms
    `

	searchSubstringQuery = `
        SELECT c.video_id, c.text, c.start_ms, c.end_ms,
               v.filename, v.original_name
        FROM cues c
        JOIN videos v ON v.id = c.video_id
        WHERE lower(c.text) LIKE ? ESCAPE '\'
        ORDER BY c.video_id, c.start_ms
    `
)
