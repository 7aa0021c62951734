package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	time DATETIME NOT NULL,
	action TEXT NOT NULL,
	direction INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	realized_pl REAL
);

CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, time);

CREATE TABLE IF NOT EXISTS equity (
	session_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	price REAL NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	unrealized_pl REAL NOT NULL,
	margin_used REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_session ON equity(session_id, time);
`
