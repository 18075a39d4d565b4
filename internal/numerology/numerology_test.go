package numerology

import (
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTables(t *testing.T) *Tables {
	t.Helper()
	tables, err := Load()
	require.NoError(t, err)
	return tables
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDerivedKinsStayInRange(t *testing.T) {
	for kin := KinMin; kin <= KinMax; kin++ {
		w := WaveNumber(kin)
		if w < 1 || w > 13 {
			t.Fatalf("wave(%d) = %d out of range", kin, w)
		}
		if m := MirrorKin(kin); !IsValidKin(m) {
			t.Fatalf("mirror(%d) = %d out of range", kin, m)
		}
		if o := OppositeKin(kin); !IsValidKin(o) {
			t.Fatalf("opposite(%d) = %d out of range", kin, o)
		}
	}
}

func TestMirrorAndOppositeAreInvolutions(t *testing.T) {
	for kin := KinMin; kin <= KinMax; kin++ {
		if got := MirrorKin(MirrorKin(kin)); got != kin {
			t.Fatalf("mirror(mirror(%d)) = %d", kin, got)
		}
		if got := OppositeKin(OppositeKin(kin)); got != kin {
			t.Fatalf("opposite(opposite(%d)) = %d", kin, got)
		}
	}
}

func TestKnownValues(t *testing.T) {
	assert.Equal(t, 1, WaveNumber(1))
	assert.Equal(t, 13, WaveNumber(13))
	assert.Equal(t, 1, WaveNumber(14))
	assert.Equal(t, 260, MirrorKin(1))
	assert.Equal(t, 131, OppositeKin(1))
	assert.Equal(t, 130, OppositeKin(260))
	assert.Equal(t, 1, AdvanceKin(260, 1))
	assert.Equal(t, 260, AdvanceKin(1, -1))
	assert.Equal(t, 5, AdvanceKin(5, 520))
}

func TestKinForDateMissingYear(t *testing.T) {
	tables := loadTables(t)
	_, ok := tables.KinForDate(date(1850, time.March, 1))
	assert.False(t, ok)

	svc, err := NewService(tables)
	require.NoError(t, err)
	_, err = svc.Reading(date(1850, time.March, 1), 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReadingIsDeterministic(t *testing.T) {
	svc, err := NewService(loadTables(t))
	require.NoError(t, err)
	birthday, err := ParseBirthday("1990-01-15")
	require.NoError(t, err)

	first, err := svc.Reading(birthday, 0)
	require.NoError(t, err)
	assert.Equal(t, 143, first.Kin)
	assert.Equal(t, WaveNumber(143), first.Wave)
	assert.Equal(t, MirrorKin(143), first.MirrorKin)
	assert.Equal(t, OppositeKin(143), first.OppositeKin)
	require.NotNil(t, first.Eki)
	require.NotNil(t, first.Kake)
	assert.NotEmpty(t, first.WaveDescription)

	for i := 0; i < 3; i++ {
		again, err := svc.Reading(birthday, 0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestReadingAgeBounds(t *testing.T) {
	svc, err := NewService(loadTables(t))
	require.NoError(t, err)

	_, err = svc.Reading(date(1990, 1, 15), -1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Reading(date(1990, 1, 15), MaxAge+1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	r, err := svc.Reading(date(1990, 1, 15), 30)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-15", r.TargetDate)
}

func TestEveryKinHasEkiAndKake(t *testing.T) {
	tables := loadTables(t)
	for kin := KinMin; kin <= KinMax; kin++ {
		_, ok := tables.Eki(kin)
		require.True(t, ok, "eki missing for %d", kin)
		require.True(t, tables.HasKake(kin), "kake missing for %d", kin)
	}
	lo, hi := tables.KinRange()
	assert.Equal(t, KinMin, lo)
	assert.Equal(t, KinMax, hi)

	all := tables.AllKake()
	require.Len(t, all, 64)
	for i, k := range all {
		assert.Equal(t, i+1, k.No)
	}
}

func TestCompatibility(t *testing.T) {
	svc, err := NewService(loadTables(t))
	require.NoError(t, err)
	today := date(2024, 6, 1)

	res, err := svc.Compatibility(date(1990, 1, 15), date(1990, 1, 15), today)
	require.NoError(t, err)
	assert.Equal(t, RelationSame, res.Relation)
	assert.Equal(t, commentSameKake, res.Comment)
	assert.Equal(t, res.Self.CurrentKin, res.Partner.CurrentKin)

	_, err = svc.Compatibility(date(1850, 1, 1), date(1990, 1, 15), today)
	require.Error(t, err)
	assert.Equal(t, msgInvalidPair, pkgerrors.As(err).Message())
}

func TestCurrentKinAdvancesDaily(t *testing.T) {
	svc, err := NewService(loadTables(t))
	require.NoError(t, err)
	birthday := date(1990, 1, 15)

	base, cur0, ok := svc.CurrentKin(birthday, birthday)
	require.True(t, ok)
	assert.Equal(t, base, cur0)

	_, cur1, _ := svc.CurrentKin(birthday, birthday.AddDate(0, 0, 1))
	assert.Equal(t, AdvanceKin(base, 1), cur1)

	_, cur260, _ := svc.CurrentKin(birthday, birthday.AddDate(0, 0, 260))
	assert.Equal(t, base, cur260)
}

func TestRelate(t *testing.T) {
	r, _ := relate(10, 11)
	assert.Equal(t, RelationAdjacent, r)
	r, _ = relate(11, 10)
	assert.Equal(t, RelationAdjacent, r)
	r, c := relate(1, 30)
	assert.Equal(t, RelationDifferent, r)
	assert.Equal(t, commentDifferentKakes, c)
}

func TestSplit(t *testing.T) {
	text := "一文目です。二文目です！三文目です？四文目。"
	got := Split(text)
	assert.Equal(t, text, got.Full)
	assert.Equal(t, "一文目です。二文目です！", got.Lead)
	assert.Equal(t, "三文目です？四文目。", got.Hidden)
	assert.Equal(t, got.Full, got.Lead+got.Hidden)

	short := Split("ひとつだけ。")
	assert.Equal(t, "ひとつだけ。", short.Lead)
	assert.Empty(t, short.Hidden)

	ascii := Split("One. Two! Three?")
	assert.Equal(t, "One. Two!", ascii.Lead)
	assert.Equal(t, "Three?", ascii.Hidden)
	assert.True(t, strings.HasPrefix(ascii.Full, ascii.Lead))
}

func TestParseBirthday(t *testing.T) {
	_, err := ParseBirthday("1990/01/15")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	d, err := ParseBirthday(" 2000-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, date(2000, 2, 29), d)
}
