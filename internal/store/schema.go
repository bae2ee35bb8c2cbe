package store

// Schema v1 - entity tables.
//
// Timestamps are epoch milliseconds throughout. Every table keeps an
// extra_json column: unknown attributes arriving through a vault
// import are preserved there and re-emitted on export
// (forward-compatibility policy).
//
// There are deliberately no FOREIGN KEY clauses. Parent/child
// relationships (folders -> local_tracks -> local_subtitles, sessions
// -> tracks) are maintained by the cascade deleter, which must also
// reclaim blob payloads that live outside this database.
// Numeric record ids are allocated from the single id_seq counter so
// that an id is unique across every collection, not just within its
// own table. The snapshot verifier's duplicate-id check relies on
// this.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Shared id allocator for all numeric record ids
CREATE TABLE IF NOT EXISTS id_seq (
  id INTEGER PRIMARY KEY AUTOINCREMENT
);

-- Playback history, one row per piece of content ever played
CREATE TABLE IF NOT EXISTS playback_sessions (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  last_played_at INTEGER NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  duration_seconds REAL NOT NULL DEFAULT 0,
  progress_seconds REAL NOT NULL DEFAULT 0,
  audio_blob_id TEXT NOT NULL DEFAULT '',
  subtitle_blob_id TEXT NOT NULL DEFAULT '',
  track_id INTEGER NOT NULL DEFAULT 0,
  feed_url TEXT NOT NULL DEFAULT '',
  episode_id TEXT NOT NULL DEFAULT '',
  audio_url TEXT NOT NULL DEFAULT '',
  cached INTEGER NOT NULL DEFAULT 0,
  extra_json TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_last_played ON playback_sessions(last_played_at);

-- Followed podcast feeds; feed_url is the natural key
CREATE TABLE IF NOT EXISTS subscriptions (
  id INTEGER PRIMARY KEY,
  feed_url TEXT UNIQUE NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  author TEXT NOT NULL DEFAULT '',
  artwork_url TEXT NOT NULL DEFAULT '',
  added_at INTEGER NOT NULL,
  provider_podcast_id TEXT NOT NULL DEFAULT '',
  extra_json TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_added ON subscriptions(added_at);

-- Starred episodes; (feed_url, audio_url) is the natural key
CREATE TABLE IF NOT EXISTS favorites (
  id INTEGER PRIMARY KEY,
  feed_url TEXT NOT NULL,
  audio_url TEXT NOT NULL,
  episode_title TEXT NOT NULL DEFAULT '',
  podcast_title TEXT NOT NULL DEFAULT '',
  artwork_url TEXT NOT NULL DEFAULT '',
  duration_seconds REAL NOT NULL DEFAULT 0,
  added_at INTEGER NOT NULL,
  episode_id TEXT NOT NULL DEFAULT '',
  extra_json TEXT NOT NULL DEFAULT '',
  UNIQUE(feed_url, audio_url)
);

CREATE INDEX IF NOT EXISTS idx_favorites_added ON favorites(added_at);

-- Key-value settings
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL,
  extra_json TEXT NOT NULL DEFAULT ''
);

-- Folders for locally imported audio; pinned_at > 0 means pinned
CREATE TABLE IF NOT EXISTS folders (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  pinned_at INTEGER NOT NULL DEFAULT 0,
  extra_json TEXT NOT NULL DEFAULT ''
);

-- Locally imported audio files; folder_id 0 means root
CREATE TABLE IF NOT EXISTS local_tracks (
  id INTEGER PRIMARY KEY,
  folder_id INTEGER NOT NULL DEFAULT 0,
  name TEXT NOT NULL,
  audio_blob_id TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  duration_seconds REAL NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  active_subtitle_id INTEGER NOT NULL DEFAULT 0,
  extra_json TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tracks_folder ON local_tracks(folder_id);

-- Caption files attached to a local track
CREATE TABLE IF NOT EXISTS local_subtitles (
  id INTEGER PRIMARY KEY,
  track_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  subtitle_blob_id TEXT NOT NULL,
  extra_json TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_subtitles_track ON local_subtitles(track_id);
`

// Schema v2 - secondary indexes for equality scans and the pruner's
// ordered reads
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_sessions_audio_url ON playback_sessions(audio_url);
CREATE INDEX IF NOT EXISTS idx_sessions_track ON playback_sessions(track_id);
CREATE INDEX IF NOT EXISTS idx_tracks_created ON local_tracks(created_at);
`
