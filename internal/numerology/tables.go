package numerology

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

//go:embed data/*.json
var dataFS embed.FS

// Eki is the per-KIN reading.
type Eki struct {
	Kin         int      `json:"kin"`
	Eki         string   `json:"eki"`
	Tone        string   `json:"tone"`
	Seals       []string `json:"seals"`
	Summary     string   `json:"summary"`
	OnePoint    string   `json:"onePoint"`
	Celebrities string   `json:"celebrities,omitempty"`
}

// Kake is one of the 64 hexagrams and the KINs that map to it.
type Kake struct {
	No    int       `json:"no"`
	Name  string    `json:"name"`
	Kins  []int     `json:"kins"`
	Image string    `json:"image"`
	Guide KakeGuide `json:"guide"`
}

// KakeGuide holds the per-topic divination hints of a hexagram.
type KakeGuide struct {
	Negotiation string `json:"negotiation"`
	Fortune     string `json:"fortune"`
	Love        string `json:"love"`
	Illness     string `json:"illness"`
	LostItems   string `json:"lostItems"`
	People      string `json:"people"`
}

type rawEki struct {
	Kin         int      `json:"kin"`
	Eki         string   `json:"易"`
	Tone        string   `json:"音"`
	Seals       []string `json:"紋章"`
	Summary     string   `json:"概要"`
	OnePoint    string   `json:"ワンポイント"`
	Celebrities string   `json:"著名人"`
}

type rawKake struct {
	No     string `json:"No"`
	Name   string `json:"卦"`
	Kins   []int  `json:"KIN"`
	Detail struct {
		Image string `json:"卦の象"`
		Guide struct {
			Negotiation string `json:"交渉・商取引"`
			Fortune     string `json:"運勢"`
			Love        string `json:"愛情・結婚"`
			Illness     string `json:"病気"`
			LostItems   string `json:"失せ物"`
			People      string `json:"人物"`
		} `json:"占いの目安"`
	} `json:"詳細"`
}

// Tables is the immutable reference data. Build it once with Load and share it.
type Tables struct {
	kin   map[int]map[int]int
	eki   map[int]Eki
	kake  []Kake
	byKin map[int]int // kin -> index into kake
	waves map[int]string
}

// Load decodes the embedded reference data.
func Load() (*Tables, error) {
	t := &Tables{}
	if err := t.loadKinTable(); err != nil {
		return nil, err
	}
	if err := t.loadEki(); err != nil {
		return nil, err
	}
	if err := t.loadKake(); err != nil {
		return nil, err
	}
	if err := t.loadWaves(); err != nil {
		return nil, err
	}
	return t, nil
}

func readJSON(name string, dst any) error {
	raw, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (t *Tables) loadKinTable() error {
	var raw map[string]map[string]int
	if err := readJSON("kin_table.json", &raw); err != nil {
		return err
	}
	t.kin = make(map[int]map[int]int, len(raw))
	for ys, months := range raw {
		year, err := strconv.Atoi(ys)
		if err != nil {
			return fmt.Errorf("kin table: bad year %q", ys)
		}
		row := make(map[int]int, len(months))
		for ms, kin := range months {
			month, err := strconv.Atoi(ms)
			if err != nil || month < 1 || month > 12 {
				return fmt.Errorf("kin table: bad month %q in %d", ms, year)
			}
			if !IsValidKin(kin) {
				return fmt.Errorf("kin table: kin %d out of range at %d-%02d", kin, year, month)
			}
			row[month] = kin
		}
		t.kin[year] = row
	}
	return nil
}

func (t *Tables) loadEki() error {
	var raw map[string]rawEki
	if err := readJSON("eki.json", &raw); err != nil {
		return err
	}
	t.eki = make(map[int]Eki, len(raw))
	for key, e := range raw {
		kin, err := strconv.Atoi(key)
		if err != nil || !IsValidKin(kin) {
			return fmt.Errorf("eki: bad kin key %q", key)
		}
		t.eki[kin] = Eki{
			Kin:         kin,
			Eki:         e.Eki,
			Tone:        e.Tone,
			Seals:       e.Seals,
			Summary:     e.Summary,
			OnePoint:    e.OnePoint,
			Celebrities: e.Celebrities,
		}
	}
	return nil
}

func (t *Tables) loadKake() error {
	var raw map[string]rawKake
	if err := readJSON("kake.json", &raw); err != nil {
		return err
	}
	t.kake = make([]Kake, 0, len(raw))
	for key, k := range raw {
		no, err := strconv.Atoi(k.No)
		if err != nil {
			return fmt.Errorf("kake %s: bad No %q", key, k.No)
		}
		g := k.Detail.Guide
		t.kake = append(t.kake, Kake{
			No:    no,
			Name:  k.Name,
			Kins:  k.Kins,
			Image: k.Detail.Image,
			Guide: KakeGuide{
				Negotiation: g.Negotiation,
				Fortune:     g.Fortune,
				Love:        g.Love,
				Illness:     g.Illness,
				LostItems:   g.LostItems,
				People:      g.People,
			},
		})
	}
	sort.Slice(t.kake, func(i, j int) bool { return t.kake[i].No < t.kake[j].No })

	t.byKin = make(map[int]int, 260)
	for i, k := range t.kake {
		for _, kin := range k.Kins {
			// first hexagram listing a KIN wins, as in a linear scan
			if _, seen := t.byKin[kin]; !seen {
				t.byKin[kin] = i
			}
		}
	}
	return nil
}

func (t *Tables) loadWaves() error {
	var raw map[string]string
	if err := readJSON("waves.json", &raw); err != nil {
		return err
	}
	t.waves = make(map[int]string, len(raw))
	for key, desc := range raw {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > 13 {
			return fmt.Errorf("waves: bad key %q", key)
		}
		t.waves[n] = desc
	}
	return nil
}
