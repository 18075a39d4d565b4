package numerology

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	MaxAge = 100

	msgKinNotFound        = "該当するKINが見つかりません"
	msgInvalidBirthday    = "誕生日の形式が正しくありません。"
	msgInvalidAge         = "年齢は0〜100の範囲で指定してください"
	msgInvalidPair        = "どちらかの誕生日が正しくありません。"
	msgPairKakeMissing    = "どちらかのKINに該当する卦が見つかりません。"
	msgKakeNotFound       = "該当する卦が見つかりません"
	commentSameKake       = "同じ卦なので、価値観や性質がとても似ています。お互いに理解しやすい関係です。"
	commentAdjacentKake   = "隣り合う卦なので、刺激し合いながらもバランスが取れる関係です。"
	commentDifferentKakes = "異なる卦同士ですが、違いを認め合うことで良い関係を築けます。"
)

// Relation classifies how two hexagrams relate.
type Relation string

const (
	RelationSame      Relation = "same"
	RelationAdjacent  Relation = "adjacent"
	RelationDifferent Relation = "different"
)

// Reading is the full fortune for a birthday at a given age.
type Reading struct {
	Birthday        string `json:"birthday"`
	Age             int    `json:"age"`
	TargetDate      string `json:"targetDate"`
	Kin             int    `json:"kin"`
	Wave            int    `json:"wave"`
	WaveDescription string `json:"waveDescription"`
	MirrorKin       int    `json:"mirrorKin"`
	OppositeKin     int    `json:"oppositeKin"`
	Eki             *Eki   `json:"eki"`
	Kake            *Kake  `json:"kake"`
	Summary         Teaser `json:"summary"`
}

// FreeReading is the public teaser reading.
type FreeReading struct {
	Birthday string `json:"birthday"`
	Kin      int    `json:"kin"`
	Eki      string `json:"eki"`
	Tone     string `json:"tone"`
	Summary  Teaser `json:"summary"`
}

type PartnerKin struct {
	Birthday   string `json:"birthday"`
	BaseKin    int    `json:"baseKin"`
	CurrentKin int    `json:"currentKin"`
	Kake       Kake   `json:"kake"`
}

type Compatibility struct {
	Self     PartnerKin `json:"self"`
	Partner  PartnerKin `json:"partner"`
	Relation Relation   `json:"relation"`
	Comment  string     `json:"comment"`
}

// Service answers numerology questions from the reference tables.
type Service struct {
	tables *Tables
}

func NewService(tables *Tables) (*Service, error) {
	if tables == nil {
		return nil, fmt.Errorf("reference tables are required")
	}
	return &Service{tables: tables}, nil
}

func (s *Service) Tables() *Tables {
	return s.tables
}

// ParseBirthday accepts YYYY-MM-DD and returns a UTC date.
func ParseBirthday(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidBirthday)
	}
	return t.UTC(), nil
}

// ParseBirthdayPair parses both birthdays of a compatibility reading.
func ParseBirthdayPair(self, partner string) (time.Time, time.Time, error) {
	a, err1 := ParseBirthday(self)
	b, err2 := ParseBirthday(partner)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidPair)
	}
	return a, b, nil
}

// Reading resolves the KIN for birthday shifted forward by age years.
func (s *Service) Reading(birthday time.Time, age int) (*Reading, error) {
	if age < 0 || age > MaxAge {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidAge)
	}
	target := birthday.AddDate(age, 0, 0)
	kin, ok := s.tables.KinForDate(target)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgKinNotFound)
	}

	wave := WaveNumber(kin)
	out := &Reading{
		Birthday:        birthday.Format(time.DateOnly),
		Age:             age,
		TargetDate:      target.Format(time.DateOnly),
		Kin:             kin,
		Wave:            wave,
		WaveDescription: s.tables.WaveDescription(wave),
		MirrorKin:       MirrorKin(kin),
		OppositeKin:     OppositeKin(kin),
	}
	if eki, ok := s.tables.Eki(kin); ok {
		out.Eki = &eki
		out.Summary = Split(eki.Summary)
	}
	if kake, ok := s.tables.KakeByKin(kin); ok {
		out.Kake = &kake
	}
	return out, nil
}

func (s *Service) FreeReading(birthday time.Time) (*FreeReading, error) {
	kin, ok := s.tables.KinForDate(birthday)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgKinNotFound)
	}
	eki, ok := s.tables.Eki(kin)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgKinNotFound)
	}
	return &FreeReading{
		Birthday: birthday.Format(time.DateOnly),
		Kin:      kin,
		Eki:      eki.Eki,
		Tone:     eki.Tone,
		Summary:  Split(eki.Summary),
	}, nil
}

// CurrentKin advances the birthday KIN by the whole UTC days elapsed until today.
func (s *Service) CurrentKin(birthday, today time.Time) (base, current int, ok bool) {
	base, ok = s.tables.KinForDate(birthday)
	if !ok {
		return 0, 0, false
	}
	return base, AdvanceKin(base, daysBetween(birthday, today)), true
}

// Compatibility compares the hexagrams of each person's current KIN.
func (s *Service) Compatibility(birthday, partner, today time.Time) (*Compatibility, error) {
	selfBase, selfKin, ok1 := s.CurrentKin(birthday, today)
	partnerBase, partnerKin, ok2 := s.CurrentKin(partner, today)
	if !ok1 || !ok2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidPair)
	}
	selfKake, ok1 := s.tables.KakeByKin(selfKin)
	partnerKake, ok2 := s.tables.KakeByKin(partnerKin)
	if !ok1 || !ok2 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPairKakeMissing)
	}

	relation, comment := relate(selfKake.No, partnerKake.No)
	return &Compatibility{
		Self:     PartnerKin{Birthday: birthday.Format(time.DateOnly), BaseKin: selfBase, CurrentKin: selfKin, Kake: selfKake},
		Partner:  PartnerKin{Birthday: partner.Format(time.DateOnly), BaseKin: partnerBase, CurrentKin: partnerKin, Kake: partnerKake},
		Relation: relation,
		Comment:  comment,
	}, nil
}

func (s *Service) KakeByKin(kin int) (*Kake, error) {
	if !IsValidKin(kin) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("KINは%d〜%dの範囲で指定してください", KinMin, KinMax))
	}
	k, ok := s.tables.KakeByKin(kin)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgKakeNotFound)
	}
	return &k, nil
}

func relate(a, b int) (Relation, string) {
	switch d := a - b; {
	case d == 0:
		return RelationSame, commentSameKake
	case d == 1 || d == -1:
		return RelationAdjacent, commentAdjacentKake
	default:
		return RelationDifferent, commentDifferentKakes
	}
}

func daysBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
