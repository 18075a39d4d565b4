package tarot

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

//go:embed data/tarot.json
var dataFS embed.FS

// MajorArcana is the size of the deck.
const MajorArcana = 22

// Reading is one orientation of a card.
type Reading struct {
	Theme    string        `json:"theme"`
	Meaning  string        `json:"meaning"`
	Keywords []string      `json:"keywords"`
	Topics   TopicReadings `json:"topics"`
}

// TopicReadings splits a reading by worry.
type TopicReadings struct {
	Love   string `json:"love"`
	Work   string `json:"work"`
	Money  string `json:"money"`
	Health string `json:"health"`
}

type Card struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Upright  Reading `json:"upright"`
	Reversed Reading `json:"reversed"`
}

type rawTopics struct {
	Love   string `json:"恋愛"`
	Work   string `json:"仕事"`
	Money  string `json:"金運"`
	Health string `json:"健康"`
}

type rawCard struct {
	Name             string    `json:"name"`
	UprightTheme     string    `json:"正位置テーマ"`
	UprightMeaning   string    `json:"正位置意味"`
	UprightKeywords  []string  `json:"正位置キーワード"`
	UprightTopics    rawTopics `json:"正位置悩み別読み解き"`
	ReversedTheme    string    `json:"逆位置テーマ"`
	ReversedMeaning  string    `json:"逆位置意味"`
	ReversedKeywords []string  `json:"逆位置キーワード"`
	ReversedTopics   rawTopics `json:"逆位置悩み別読み解き"`
}

// Deck is the immutable card set.
type Deck struct {
	cards []Card
}

// LoadDeck decodes the embedded major arcana.
func LoadDeck() (*Deck, error) {
	raw, err := dataFS.ReadFile("data/tarot.json")
	if err != nil {
		return nil, fmt.Errorf("read tarot deck: %w", err)
	}
	var byID map[string]rawCard
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("decode tarot deck: %w", err)
	}
	cards := make([]Card, 0, len(byID))
	for key, c := range byID {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("tarot deck: bad card id %q", key)
		}
		cards = append(cards, Card{
			ID:       id,
			Name:     c.Name,
			Upright:  Reading{Theme: c.UprightTheme, Meaning: c.UprightMeaning, Keywords: c.UprightKeywords, Topics: TopicReadings(c.UprightTopics)},
			Reversed: Reading{Theme: c.ReversedTheme, Meaning: c.ReversedMeaning, Keywords: c.ReversedKeywords, Topics: TopicReadings(c.ReversedTopics)},
		})
	}
	if len(cards) != MajorArcana {
		return nil, fmt.Errorf("tarot deck: expected %d cards, got %d", MajorArcana, len(cards))
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return &Deck{cards: cards}, nil
}

func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

func (d *Deck) Len() int { return len(d.cards) }
