package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var codePattern = regexp.MustCompile(`^HORSE-2026-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{4}-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{4}$`)

func TestGenerator_Generate(t *testing.T) {
	gen := NewGenerator("HORSE", "2026")

	for i := 0; i < 100; i++ {
		code := gen.Generate()
		assert.Regexp(t, codePattern, code)
	}
}

func TestGenerator_Defaults(t *testing.T) {
	gen := NewGenerator("", "")
	assert.Regexp(t, codePattern, gen.Generate())
}

func TestGenerator_Batch(t *testing.T) {
	gen := NewGenerator("HORSE", "2026")

	codes := gen.Batch(500)
	assert.Len(t, codes, 500)

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		assert.Regexp(t, codePattern, code)
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "HORSE-2026-ABCD-EFGH", Normalize("  horse-2026-abcd-efgh  "))
	assert.Equal(t, "HORSE-2026-ABCD-EFGH", Normalize("HORSE-2026-ABCD-EFGH"))
	assert.Equal(t, "", Normalize("   "))
}

func TestSnapshot_Clone(t *testing.T) {
	snapshot := NewSnapshot()
	snapshot.Codes["HORSE-2026-AAAA-AAAA"] = IssuanceRecord{Index: 1}

	clone := snapshot.Clone()
	clone.Codes["HORSE-2026-BBBB-BBBB"] = IssuanceRecord{Index: 2}
	clone.UsedCodes["HORSE-2026-AAAA-AAAA"] = UsageRecord{DeviceID: "DEVICE-001"}

	assert.Len(t, snapshot.Codes, 1)
	assert.Empty(t, snapshot.UsedCodes)
}
