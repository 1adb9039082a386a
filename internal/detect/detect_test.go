package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/qrlens/internal/features"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/whitelist"
)

func newTestEngine() *Engine {
	trusted := whitelist.New("qr.nspk.ru", "nspk.ru")
	brands := whitelist.New("sberbank.ru", "gosuslugi.ru", "vk.com")
	return NewEngine(trusted, brands, nil)
}

func TestEngineAnalyze(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name    string
		url     string
		verdict model.Verdict
		rule    string
		reason  string
	}{
		{"trusted", "https://qr.nspk.ru/BD100004S43DMVH01JB9CKJL8V8Q1TU9", model.VerdictSafe, "trusted-whitelist", "qr.nspk.ru is in the trusted whitelist"},
		{"trusted subdomain", "https://pay.nspk.ru/", model.VerdictSafe, "trusted-whitelist", "(nspk.ru)"},
		{"trusted without scheme with port", "qr.nspk.ru:443/pay", model.VerdictSafe, "trusted-whitelist", "qr.nspk.ru is in the trusted whitelist"},
		{"apk", "https://malware.com/virus.apk", model.VerdictDanger, "malicious-extension", ".apk"},
		{"extension in path with query", "https://files.example.com/setup.EXE?x=1", model.VerdictDanger, "malicious-extension", ".exe"},
		{"deep link", "sber://transfer?sum=50000", model.VerdictSuspicious, "deep-link", "sber://"},
		{"homograph", "https://xn--80ak6aa92e.com/login", model.VerdictDanger, "homograph", "xn--80ak6aa92e.com ->"},
		{"typosquat", "https://sberrbank.ru/login", model.VerdictDanger, "typosquatting", "distance 1 to sberbank.ru"},
		{"typosquat with www", "https://www.gosusiugi.ru/", model.VerdictDanger, "typosquatting", "gosuslugi.ru"},
		{"high entropy", "https://abcdefghijklmnopqrstuvwxyz.com/", model.VerdictSuspicious, "high-entropy", "threshold 4.50"},
		{"unknown", "https://google.com", model.VerdictUnknown, "", "statistical scoring"},
		{"exact brand", "https://www.sberbank.ru/", model.VerdictUnknown, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Analyze(tt.url)
			assert.Equal(t, tt.verdict, got.Verdict)
			assert.Equal(t, tt.rule, got.Rule)
			assert.Contains(t, got.Reason, tt.reason)
			assert.GreaterOrEqual(t, int64(got.Elapsed), int64(0))
		})
	}
}

func TestEngineOrder(t *testing.T) {
	e := newTestEngine()

	names := make([]string, 0, len(e.Rules()))
	for _, r := range e.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"trusted-whitelist",
		"malicious-extension",
		"deep-link",
		"homograph",
		"typosquatting",
		"high-entropy",
	}, names)

	// earlier rules win
	assert.Equal(t, model.VerdictSafe, e.Analyze("https://qr.nspk.ru/app.apk").Verdict)
	assert.Equal(t, "malicious-extension", e.Analyze("sber://pay/app.apk").Rule)
}

func TestTyposquatExactMatchExclusion(t *testing.T) {
	r := &TyposquatRule{
		Brands:    whitelist.New("vk.co", "vk.com"),
		Dist:      features.Levenshtein{},
		Threshold: TyposquatThreshold,
	}
	assert.Nil(t, r.Evaluate(NewInput("https://vk.com/id1")))

	f := r.Evaluate(NewInput("https://vk.cm/"))
	require.NotNil(t, f)
	assert.Equal(t, "typosquatting: levenshtein distance 1 to vk.co", f.Reason)
}

func TestTyposquatEmptyBrands(t *testing.T) {
	r := &TyposquatRule{Brands: whitelist.New(), Dist: features.Levenshtein{}, Threshold: 2}
	assert.Nil(t, r.Evaluate(NewInput("https://sberrbank.ru")))
}

func TestHomographPlainDomain(t *testing.T) {
	// xn-- outside the host decodes to plain Latin and does not fire
	assert.Nil(t, (&HomographRule{}).Evaluate(NewInput("https://example.com/xn--path")))
}

func TestHasConfusableScript(t *testing.T) {
	assert.True(t, hasConfusableScript("пример.com"))
	assert.True(t, hasConfusableScript("αpple.com"))
	assert.False(t, hasConfusableScript("apple.com"))
	assert.False(t, hasConfusableScript("例え.jp"))
}

func TestEmptyEngine(t *testing.T) {
	got := NewEngineWithRules().Analyze("https://anything.example")
	assert.Equal(t, model.VerdictUnknown, got.Verdict)
}
