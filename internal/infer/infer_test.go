package infer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/fieldpath"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailySeries = `{
	"Meta Data": {"1. Information": "Daily Prices", "2. Symbol": "IBM", "3. Last Refreshed": "2024-01-02"},
	"Time Series (Daily)": {
		"2024-01-02": {"1. open": "100.0", "4. close": "101.5"},
		"2024-01-01": {"1. open": "99.0", "4. close": "100.0"}
	}
}`

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

func TestDiscover_FlatObject(t *testing.T) {
	doc := jsonval.MustParse(`{"symbol":"AAPL","price":189.5,"changePercent":1.23}`)
	assert.Equal(t, []string{"symbol", "price", "changePercent"}, Discover(doc))
}

func TestDiscover_TimeSeriesMap(t *testing.T) {
	doc := jsonval.MustParse(`{"Time Series (Daily)": {
		"2024-01-02": {"1. open":"100.0","4. close":"101.5"},
		"2024-01-01": {"1. open":"99.0","4. close":"100.0"}}}`)
	assert.Equal(t, []string{
		"Time Series (Daily).*.1. open",
		"Time Series (Daily).*.4. close",
	}, Discover(doc))
}

func TestDiscover_MetaDataLast(t *testing.T) {
	doc := jsonval.MustParse(dailySeries)
	assert.Equal(t, []string{
		"Time Series (Daily).*.1. open",
		"Time Series (Daily).*.4. close",
		"Meta Data.1. Information",
		"Meta Data.2. Symbol",
		"Meta Data.3. Last Refreshed",
	}, Discover(doc))
}

func TestDiscover_Empty(t *testing.T) {
	for _, src := range []string{`null`, `{}`, `[]`, `42`, `"text"`} {
		assert.Empty(t, Discover(jsonval.MustParse(src)), src)
	}
	assert.Empty(t, Discover(jsonval.Value{}))
}

func TestDiscover_ArrayRoot(t *testing.T) {
	doc := jsonval.MustParse(`[{"id":1,"name":"a","tags":["x"]},{"id":2,"other":true}]`)
	assert.Equal(t, []string{"id", "name", "tags"}, Discover(doc))
}

func TestDiscover_NestedAndNulls(t *testing.T) {
	doc := jsonval.MustParse(`{"data":{"currency":"BTC","rates":{"USD":"43000.1","EUR":"39000.2"}},"note":null,"items":[{"a":1}]}`)
	assert.Equal(t, []string{"data.currency", "data.rates.USD", "data.rates.EUR", "note", "items"}, Discover(doc))
}

func TestDiscover_EmptyChildObject(t *testing.T) {
	doc := jsonval.MustParse(`{"a":{},"b":1}`)
	assert.Equal(t, []string{"b"}, Discover(doc))
}

func TestDiscover_Dedup(t *testing.T) {
	doc := jsonval.MustParse(`{"m":{"k1":{"x":1,"x":2}},"m.*.x":3}`)
	assert.Equal(t, []string{"m.*.x"}, Discover(doc))
}

func TestDiscover_Idempotent(t *testing.T) {
	doc := jsonval.MustParse(dailySeries)
	assert.Equal(t, Discover(doc), Discover(doc))
}

func TestDiscover_CapAndBands(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"Meta Data":{`)
	for i := 0; i < 20; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `"m%d":%d`, i, i)
	}
	sb.WriteString(`},`)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, `"plain%d":%d,`, i, i)
	}
	sb.WriteString(`"Time Series (5min)":{"2024-01-01 10:00:00":{`)
	for i := 0; i < 10; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `"k%d":"%d"`, i, i)
	}
	sb.WriteString(`}}}`)

	doc := jsonval.MustParse(sb.String())
	fields := Discover(doc)
	require.Len(t, fields, 20)

	lastSeries, firstMeta := -1, len(fields)
	for i, f := range fields {
		if strings.Contains(f, "Time Series") || strings.Contains(f, "*.") {
			lastSeries = i
		}
		if strings.Contains(f, "Meta Data") && i < firstMeta {
			firstMeta = i
		}
	}
	assert.Equal(t, 9, lastSeries)
	assert.Less(t, lastSeries, firstMeta)
	assert.Equal(t, "plain0", fields[10])
}

func TestDiscover_CustomConfig(t *testing.T) {
	inf := &Inferrer{Config: InferConfig{MaxFields: 2, MetaMarkers: []string{"meta"}}}
	doc := jsonval.MustParse(`{"meta":{"v":1},"a":1,"b":2,"c":3}`)
	assert.Equal(t, []string{"a", "b"}, inf.Discover(doc))
}

func TestDiscover_LeafPathsResolve(t *testing.T) {
	docs := []string{
		dailySeries,
		`{"Global Quote":{"01. symbol":"IBM","05. price":"160.1"}}`,
		`{"data":[{"id":1,"attrs":{"n":null}}],"x":{"y":{"z":false}}}`,
		`[{"a":{"b":1}}]`,
	}
	for _, src := range docs {
		doc := jsonval.MustParse(src)
		for _, f := range Discover(doc) {
			if fieldpath.IsWildcard(f) {
				continue
			}
			_, ok := fieldpath.Resolve(doc, f, jsonval.Value{})
			assert.True(t, ok, "%s should resolve in %s", f, src)
		}
	}
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	tests := []struct {
		path   string
		sample string
		want   api.FormatKind
	}{
		{"price", `189.5`, api.KindCurrency},
		{"quote.totalCost", `"x"`, api.KindCurrency},
		{"marketValueUSD", `1`, api.KindCurrency},
		{"changePercent", `1.23`, api.KindPercentage},
		{"interestRate", `0.05`, api.KindPercentage},
		{"createdAt", `"2024-01-01"`, api.KindDate},
		{"Meta Data.3. Last Refreshed", `"2024-01-02"`, api.KindText},
		{"Time Series (Daily).*.4. close", `"101.5"`, api.KindNumber},
		{"volume", `12345`, api.KindNumber},
		{"volume", `" 12.5 "`, api.KindNumber},
		{"volume", `"12abc"`, api.KindText},
		{"symbol", `"AAPL"`, api.KindText},
		{"flag", `true`, api.KindText},
		{"missing", ``, api.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var sample jsonval.Value
			if tt.sample != "" {
				sample = jsonval.MustParse(tt.sample)
			}
			assert.Equal(t, tt.want, Classify(tt.path, sample))
		})
	}
}

func TestClassify_FlatScenario(t *testing.T) {
	doc := jsonval.MustParse(`{"symbol":"AAPL","price":189.5,"changePercent":1.23}`)
	kinds := map[string]api.FormatKind{}
	for _, f := range Discover(doc) {
		v, _ := fieldpath.Resolve(doc, f, jsonval.Value{})
		kinds[f] = Classify(f, v)
	}
	assert.Equal(t, map[string]api.FormatKind{
		"symbol":        api.KindText,
		"price":         api.KindCurrency,
		"changePercent": api.KindPercentage,
	}, kinds)
}

// ---------------------------------------------------------------------------
// Suggestions
// ---------------------------------------------------------------------------

func TestSuggest(t *testing.T) {
	doc := jsonval.MustParse(dailySeries)
	got := NewInferrer().Suggest(doc)
	require.Len(t, got, 5)

	assert.Equal(t, "Time Series (Daily).*.1. open", got[0].Path)
	assert.Equal(t, "100.0", got[0].Sample.Str())
	assert.Equal(t, api.KindNumber, got[0].Format.Kind)

	assert.Equal(t, "Time Series (Daily).*.4. close", got[1].Path)
	assert.Nil(t, got[1].Format.Decimals)
	assert.Equal(t, "101.5", format.Format(got[1].Sample, &got[1].Format))

	assert.Equal(t, "Meta Data.2. Symbol", got[3].Path)
	assert.Equal(t, api.KindText, got[3].Format.Kind)

	for _, s := range got {
		assert.True(t, s.Selected)
	}
}

func TestSuggest_AutoSelectLimit(t *testing.T) {
	inf := &Inferrer{Config: DefaultInferConfig()}
	inf.Config.AutoSelect = 1
	got := inf.Suggest(jsonval.MustParse(`{"a":1,"b":2}`))
	require.Len(t, got, 2)
	assert.True(t, got[0].Selected)
	assert.False(t, got[1].Selected)
}

func TestFilter(t *testing.T) {
	fields := []string{"Time Series.*.1. open", "symbol", "Meta Data.2. Symbol"}
	assert.Equal(t, []string{"symbol", "Meta Data.2. Symbol"}, Filter(fields, "SYM"))
	assert.Equal(t, fields, Filter(fields, ""))
	assert.Empty(t, Filter(fields, "zzz"))
}
