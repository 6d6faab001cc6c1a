package keystore

const schema = `
CREATE TABLE IF NOT EXISTS keys (
	id          TEXT PRIMARY KEY,
	bits        INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	public_key  BLOB NOT NULL,
	salt        BLOB NOT NULL,
	nonce       BLOB NOT NULL,
	iterations  INTEGER NOT NULL,
	sealed_key  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS keys_created_at ON keys(created_at);
`
