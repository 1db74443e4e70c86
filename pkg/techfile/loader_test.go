package techfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/RTimothyEdwards/magic-core/pkg/elog"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBasicSections(t *testing.T) {
	var planesSeen, cifSeen []string

	l := NewLoader(elog.NilView{})
	_, err := l.AddClient("planes", ClientFuncs{
		Line: func(f []string) error { planesSeen = append(planesSeen, f[0]); return nil },
	}, 0, false)
	require.NoError(t, err)

	planesID, err := l.sectionID("planes", false)
	require.NoError(t, err)

	_, err = l.AddClient("cif", ClientFuncs{
		Line: func(f []string) error { cifSeen = append(cifSeen, f[0]); return nil },
	}, 1<<uint(planesID), false)
	require.NoError(t, err)

	content := `planes
metal1
metal2
end
cif
style foo
end
`
	path := writeTemp(t, "test.tech", content)
	require.NoError(t, l.Load(path, 0))

	assert.Equal(t, []string{"metal1", "metal2"}, planesSeen)
	assert.Equal(t, []string{"style"}, cifSeen)
}

func TestLoadMissingPrereqSkipsOptionalSection(t *testing.T) {
	var ran bool
	l := NewLoader(elog.NilView{})
	_, err := l.AddClient("planes", ClientFuncs{}, 0, false)
	require.NoError(t, err)
	planesID, _ := l.sectionID("planes", false)

	_, err = l.AddClient("extract", ClientFuncs{
		Init: func() error { ran = true; return nil },
	}, 1<<uint(planesID), true)
	require.NoError(t, err)

	content := `extract
foo
end
`
	path := writeTemp(t, "test.tech", content)
	require.NoError(t, l.Load(path, 0))
	assert.False(t, ran)
}

func TestLoadMissingRequiredSectionFails(t *testing.T) {
	l := NewLoader(elog.NilView{})
	_, err := l.AddClient("planes", ClientFuncs{}, 0, false)
	require.NoError(t, err)
	planesID, _ := l.sectionID("planes", false)

	_, err = l.AddClient("extract", ClientFuncs{}, 1<<uint(planesID), false)
	require.NoError(t, err)

	content := `extract
foo
end
`
	path := writeTemp(t, "test.tech", content)
	err = l.Load(path, 0)
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestAliasAndSectionMask(t *testing.T) {
	l := NewLoader(elog.NilView{})
	var seen []string
	_, err := l.AddClient("images", ClientFuncs{
		Line: func(f []string) error { seen = append(seen, f[0]); return nil },
	}, 0, false)
	require.NoError(t, err)
	l.AddAlias("images", "contact")

	content := `contact
m1c
end
`
	path := writeTemp(t, "test.tech", content)
	require.NoError(t, l.Load(path, 0))
	assert.Equal(t, []string{"m1c"}, seen)

	skip, _, err := l.SectionMask("images")
	require.NoError(t, err)
	assert.Equal(t, SectionMask(0), skip) // single section registered: nothing else to skip
}

func TestIncludeAndContinuation(t *testing.T) {
	dir := t.TempDir()
	incPath := filepath.Join(dir, "inc.tech")
	require.NoError(t, os.WriteFile(incPath, []byte("bar\n"), 0o644))

	main := "planes\nfoo \\\n  continued\ninclude inc.tech\nend\n"
	mainPath := filepath.Join(dir, "main.tech")
	require.NoError(t, os.WriteFile(mainPath, []byte(main), 0o644))

	var lines [][]string
	l := NewLoader(elog.NilView{})
	_, err := l.AddClient("planes", ClientFuncs{
		Line: func(f []string) error { lines = append(lines, f); return nil },
	}, 0, false)
	require.NoError(t, err)

	require.NoError(t, l.Load(mainPath, 0))
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"foo", "continued"}, lines[0])
	assert.Equal(t, []string{"bar"}, lines[1])
}
