package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "Price on request", FormatPrice(nil, "RUB"))
	assert.Equal(t, "1 500,00 ₽", FormatPrice(ptr(1500), "RUB"))
	assert.Equal(t, "$1 234 567,50", FormatPrice(ptr(1234567.5), "USD"))
	assert.Equal(t, "€99,90", FormatPrice(ptr(99.9), "EUR"))
	assert.Equal(t, "0,00 ₽", FormatPrice(ptr(0), "RUB"))
}

func TestFormatSalary(t *testing.T) {
	assert.Equal(t, "By agreement", FormatSalary(nil, nil, "RUB"))
	assert.Equal(t, "from 50 000,00 ₽", FormatSalary(ptr(50000), nil, "RUB"))
	assert.Equal(t, "up to $900,00", FormatSalary(nil, ptr(900), "USD"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "", SanitizeInput("   "))
	assert.Equal(t, "Cotton fabric", SanitizeInput("  <b>Cotton</b> fabric "))
	assert.Equal(t, "", SanitizeInput(`<script>alert(1)</script>`))
	assert.Equal(t, "Tom & Jerry's", SanitizeInput("Tom & Jerry's"))
	assert.NotContains(t, SanitizeInput(`<img src=x onerror=alert(1)>text`), "<")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% wool\_blend`, EscapeLike("100% wool_blend"))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", Excerpt("<p>short   text</p>", 150))

	long := strings.Repeat("linen ", 40)
	got := Excerpt(long, 20)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "linen linen linen...", got)
}

func TestRenderMarkdownIsSafe(t *testing.T) {
	out := string(RenderMarkdown("**Cotton** <script>alert(1)</script>\n\n![x](http://e/x.png)\n\n[site](https://example.com)"))
	assert.Contains(t, out, "<strong>Cotton</strong>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "nofollow")
}

func TestRenderMarkdownWrapsTables(t *testing.T) {
	out := string(RenderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |\n"))
	assert.Contains(t, out, `class="table-scroll"`)
	assert.Contains(t, out, `price-table`)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPasswordHash("secret1", hash))
	assert.False(t, CheckPasswordHash("secret2", hash))
}

func TestParseHelpers(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)
	_, ok = ParseID("0")
	assert.False(t, ok)
	_, ok = ParseID("-3")
	assert.False(t, ok)

	v, err := ParseAmount("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseAmount("1 500,5")
	require.NoError(t, err)
	assert.InDelta(t, 1500.5, *v, 0.0001)

	_, err = ParseAmount("abc")
	assert.ErrorIs(t, err, ErrNotANumber)
	_, err = ParseAmount("NaN")
	assert.Error(t, err)

	assert.Equal(t, 7, StringToInt(" 7 "))
	assert.Equal(t, 0, StringToInt("x"))
}

func TestCacheTTL(t *testing.T) {
	c, err := NewCache(10)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", 5, time.Minute)
	assert.Equal(t, 5, c.Get("k"))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, c.Get("k"))

	calls := 0
	load := func() (int, error) { calls++; return 9, nil }
	v, err := Cached(c, "n", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	v, err = Cached(c, "n", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Equal(t, 1, calls)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", TimeAgo(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 hour ago", TimeAgo(now.Add(-time.Hour), now))
	assert.Equal(t, "3 days ago", TimeAgo(now.Add(-72*time.Hour), now))
}
