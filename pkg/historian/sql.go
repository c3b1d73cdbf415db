package historian

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"liyu1981.xyz/water-alarm-service/pkg/common"
)

const (
	defaultPort         = 1433
	defaultConnTimeout  = 10 * time.Second
	defaultQueryTimeout = 15 * time.Second

	// batch reads only trust samples from the last hour; point queries use
	// the 24h/30min bounds baked into their statements
	batchLookBack = time.Hour
)

type Config struct {
	Server       string
	Port         int
	Database     string
	Username     string
	Password     string
	ConnTimeout  time.Duration
	QueryTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = defaultConnTimeout
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	return c
}

// SQLClient implements Client against the WonderWare Runtime database.
type SQLClient struct {
	conn *sql.DB
	cfg  Config
}

// Connect opens and verifies a connection. Callers own the returned client
// for one evaluation cycle and must Close it before sleeping.
func Connect(ctx context.Context, cfg Config) (*SQLClient, error) {
	cfg = cfg.withDefaults()

	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
	}
	q := url.Values{}
	q.Set("database", cfg.Database)
	q.Set("dial timeout", fmt.Sprintf("%d", int(cfg.ConnTimeout.Seconds())))
	q.Set("TrustServerCertificate", "true")
	u.RawQuery = q.Encode()

	conn, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open historian connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping historian: %w", err)
	}

	return &SQLClient{conn: conn, cfg: cfg}, nil
}

func (c *SQLClient) Close() error {
	return c.conn.Close()
}

func (c *SQLClient) logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameHistorian)
}

func (c *SQLClient) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.QueryTimeout)
}

const currentValueQuery = `
SELECT TOP 1
    temp.TagName,
    temp.DateTime,
    temp.Value,
    Unit = ISNULL(CAST(EngineeringUnit.Unit as NVARCHAR(20)), 'N/A')
FROM (
    SELECT *
    FROM History
    WHERE History.TagName = @p1
    AND wwRetrievalMode = 'Cyclic'
    AND wwCycleCount = 1
    AND wwVersion = 'Latest'
    AND DateTime >= DATEADD(hour, -24, GETDATE())
    AND DateTime <= GETDATE()
) temp
LEFT JOIN AnalogTag ON AnalogTag.TagName = temp.TagName
LEFT JOIN EngineeringUnit ON AnalogTag.EUKey = EngineeringUnit.EUKey
ORDER BY temp.DateTime DESC`

func (c *SQLClient) CurrentValue(ctx context.Context, tagName string) Sample {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	row := c.conn.QueryRowContext(qctx, currentValueQuery, tagName)

	var name string
	var ts time.Time
	var value sql.NullFloat64
	var unit string
	if err := row.Scan(&name, &ts, &value, &unit); err != nil {
		if err == sql.ErrNoRows {
			return AbsentSample(tagName, "no recent data found")
		}
		c.logger().Warn("Current value query failed",
			zap.String("tag_name", tagName), zap.Error(err))
		return AbsentSample(tagName, err.Error())
	}
	if !value.Valid {
		return AbsentSample(tagName, "null value")
	}

	return Sample{TagName: tagName, Timestamp: ts, Value: value.Float64, Unit: unit, Quality: "Good"}
}

const windowStartQuery = `
SELECT TOP 1 DateTime, Value
FROM History
WHERE TagName = @p1
AND wwRetrievalMode = 'Cyclic'
AND wwCycleCount = 1
AND wwVersion = 'Latest'
AND DateTime >= @p2
AND DateTime <= DATEADD(MINUTE, 30, @p2)
ORDER BY DateTime ASC`

const windowEndQuery = `
SELECT TOP 1 DateTime, Value
FROM History
WHERE TagName = @p1
AND wwRetrievalMode = 'Cyclic'
AND wwCycleCount = 1
AND wwVersion = 'Latest'
AND DateTime >= DATEADD(MINUTE, -30, @p2)
AND DateTime <= @p2
ORDER BY DateTime DESC`

func (c *SQLClient) WindowSamples(ctx context.Context, tagName string, start, end time.Time) (Sample, Sample) {
	startSample := c.pointSample(ctx, windowStartQuery, tagName, start)
	endSample := c.pointSample(ctx, windowEndQuery, tagName, end)

	// a window still in progress often has no sample at its end yet; the
	// latest reading is the best stand-in
	if endSample.Absent {
		endSample = c.CurrentValue(ctx, tagName)
	}

	return startSample, endSample
}

func (c *SQLClient) pointSample(ctx context.Context, query, tagName string, at time.Time) Sample {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	row := c.conn.QueryRowContext(qctx, query, tagName, at)

	var ts time.Time
	var value sql.NullFloat64
	if err := row.Scan(&ts, &value); err != nil {
		if err == sql.ErrNoRows {
			return AbsentSample(tagName, "no data point near instant")
		}
		c.logger().Warn("Point sample query failed",
			zap.String("tag_name", tagName), zap.Time("at", at), zap.Error(err))
		return AbsentSample(tagName, err.Error())
	}
	if !value.Valid {
		return AbsentSample(tagName, "null value")
	}

	return Sample{TagName: tagName, Timestamp: ts, Value: value.Float64, Quality: "Good"}
}

func (c *SQLClient) BatchCurrentValues(ctx context.Context, tagNames []string) map[string]Sample {
	results := make(map[string]Sample, len(tagNames))
	if len(tagNames) == 0 {
		return results
	}

	placeholders := make([]string, len(tagNames))
	args := make([]any, 0, len(tagNames)+1)
	for i, name := range tagNames {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
		args = append(args, name)
	}
	args = append(args, time.Now().Add(-batchLookBack))

	query := fmt.Sprintf(`
SELECT h.TagName, h.DateTime, h.Value, h.QualityDetail
FROM Live h
INNER JOIN (
    SELECT TagName, MAX(DateTime) as MaxTime
    FROM Live
    WHERE TagName IN (%s)
    AND DateTime >= @p%d
    GROUP BY TagName
) latest ON h.TagName = latest.TagName AND h.DateTime = latest.MaxTime`,
		strings.Join(placeholders, ","), len(tagNames)+1)

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	rows, err := c.conn.QueryContext(qctx, query, args...)
	if err != nil {
		c.logger().Warn("Batch query failed, falling back to per-tag reads",
			zap.Int("tag_count", len(tagNames)), zap.Error(err))
		for _, name := range tagNames {
			results[name] = c.CurrentValue(ctx, name)
		}
		return results
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var ts time.Time
		var value sql.NullFloat64
		var quality sql.NullString
		if err := rows.Scan(&name, &ts, &value, &quality); err != nil {
			c.logger().Warn("Batch row scan failed", zap.Error(err))
			continue
		}
		if !value.Valid {
			results[name] = AbsentSample(name, "null value")
			continue
		}
		results[name] = Sample{TagName: name, Timestamp: ts, Value: value.Float64, Quality: quality.String}
	}

	// report quiet tags explicitly instead of omitting them
	for _, name := range tagNames {
		if _, ok := results[name]; !ok {
			results[name] = AbsentSample(name, "no recent data found")
		}
	}

	return results
}

const historicalDataQuery = `
SELECT TOP (@p4)
    temp.TagName,
    temp.DateTime,
    temp.Value,
    Unit = ISNULL(CAST(EngineeringUnit.Unit as NVARCHAR(20)), 'N/A')
FROM (
    SELECT *
    FROM History
    WHERE History.TagName = @p1
    AND wwRetrievalMode = 'Cyclic'
    AND wwCycleCount = 1
    AND wwVersion = 'Latest'
    AND DateTime >= @p2
    AND DateTime <= @p3
) temp
LEFT JOIN AnalogTag ON AnalogTag.TagName = temp.TagName
LEFT JOIN EngineeringUnit ON AnalogTag.EUKey = EngineeringUnit.EUKey
ORDER BY temp.DateTime ASC`

func (c *SQLClient) HistoricalData(ctx context.Context, tagName string, start, end time.Time, maxPoints int) ([]Sample, error) {
	if maxPoints <= 0 {
		maxPoints = 100
	}

	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	rows, err := c.conn.QueryContext(qctx, historicalDataQuery, tagName, start, end, maxPoints)
	if err != nil {
		return nil, fmt.Errorf("historical data query for %s: %w", tagName, err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var name, unit string
		var ts time.Time
		var value sql.NullFloat64
		if err := rows.Scan(&name, &ts, &value, &unit); err != nil {
			return samples, fmt.Errorf("scan historical row for %s: %w", tagName, err)
		}
		if !value.Valid {
			continue
		}
		samples = append(samples, Sample{TagName: name, Timestamp: ts, Value: value.Float64, Unit: unit, Quality: "Good"})
	}

	return samples, rows.Err()
}
