package onboarding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionIDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

func TestDefaultCatalog_PlanSizes(t *testing.T) {
	cat := DefaultCatalog()
	want := map[Plan]int{PlanFree: 4, PlanBasic: 8, PlanPremium: 13}

	for plan, n := range want {
		first, err := cat.QuestionsFor(plan)
		require.NoError(t, err)
		assert.Len(t, first, n, "plan %s", plan)

		second, err := cat.QuestionsFor(plan)
		require.NoError(t, err)
		assert.Equal(t, questionIDs(first), questionIDs(second), "plan %s must be deterministic", plan)
	}
}

func TestDefaultCatalog_BasicIsBasePlusAdditional(t *testing.T) {
	cat := DefaultCatalog()
	def := DefaultDefinition()

	basic, err := cat.QuestionsFor(PlanBasic)
	require.NoError(t, err)

	want := append(questionIDs(def.Base), questionIDs(def.Additional)...)
	assert.Equal(t, want, questionIDs(basic))
}

func TestStaticCatalog_ReturnsCopies(t *testing.T) {
	cat := DefaultCatalog()
	qs, err := cat.QuestionsFor(PlanFree)
	require.NoError(t, err)

	qs[0].ID = "mutated"
	qs[0].Options[0] = "mutated"

	again, err := cat.QuestionsFor(PlanFree)
	require.NoError(t, err)
	assert.Equal(t, "household_size", again[0].ID)
	assert.Equal(t, "1", again[0].Options[0])
}

func TestStaticCatalog_UnknownPlan(t *testing.T) {
	_, err := DefaultCatalog().QuestionsFor(Plan("enterprise"))
	assert.Error(t, err)
}

func TestCatalogDefinition_Validate(t *testing.T) {
	zip := Question{ID: "zip_code", Kind: KindText}
	grocer := Question{ID: "grocer", Kind: KindConditional, Prerequisite: "zip_code"}
	pick := Question{ID: "pick", Kind: KindSingleSelect, Options: []string{"a"}}

	tests := []struct {
		name    string
		def     CatalogDefinition
		wantErr string
	}{
		{
			name: "valid",
			def: CatalogDefinition{
				Base:    []Question{zip, grocer},
				Premium: []Question{pick, zip, grocer},
			},
		},
		{
			name:    "empty plan",
			def:     CatalogDefinition{Base: []Question{pick}},
			wantErr: "premium: no questions",
		},
		{
			name: "duplicate id in basic",
			def: CatalogDefinition{
				Base:       []Question{pick},
				Additional: []Question{pick},
				Premium:    []Question{pick},
			},
			wantErr: `duplicate id "pick"`,
		},
		{
			name: "prerequisite after conditional",
			def: CatalogDefinition{
				Base:    []Question{grocer, zip},
				Premium: []Question{pick},
			},
			wantErr: "must come earlier",
		},
		{
			name: "select without options",
			def: CatalogDefinition{
				Base:    []Question{{ID: "x", Kind: KindMultiSelect}},
				Premium: []Question{pick},
			},
			wantErr: "needs options",
		},
		{
			name: "unknown kind",
			def: CatalogDefinition{
				Base:    []Question{{ID: "x", Kind: "slider"}},
				Premium: []Question{pick},
			},
			wantErr: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	content := `
base:
  - id: zip_code
    prompt: Zip?
    kind: text
    pattern: '^\d{5}$'
  - id: grocer
    prompt: Grocer?
    kind: conditional
    prerequisite: zip_code
additional:
  - id: skill
    prompt: Skill?
    kind: single-select
    options: [beginner, advanced]
premium:
  - id: skill
    prompt: Skill?
    kind: single-select
    options: [beginner, advanced]
  - id: zip_code
    prompt: Zip?
    kind: text
  - id: grocer
    prompt: Grocer?
    kind: conditional
    prerequisite: zip_code
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cat, err := LoadCatalogFile(path)
	require.NoError(t, err)

	basic, err := cat.QuestionsFor(PlanBasic)
	require.NoError(t, err)
	assert.Equal(t, []string{"zip_code", "grocer", "skill"}, questionIDs(basic))
	assert.Equal(t, KindConditional, basic[1].Kind)
	assert.Equal(t, []string{"beginner", "advanced"}, basic[2].Options)
}

func TestLoadCatalogFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: [{id: a, kind: text}]\n"), 0o644))

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "premium: no questions")

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan("  Premium ")
	require.NoError(t, err)
	assert.Equal(t, PlanPremium, p)

	_, err = ParsePlan("gold")
	assert.Error(t, err)
}
