package tarot

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
)

const (
	MinDraw     = 1
	MaxDraw     = 3
	DefaultDraw = 1
)

// DrawnCard is a card with the orientation it came out in.
type DrawnCard struct {
	Position    int     `json:"position"`
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Upright     bool    `json:"upright"`
	Orientation string  `json:"orientation"`
	Reading     Reading `json:"reading"`
}

// DrawRequest is the tarot draw payload.
type DrawRequest struct {
	Count int `json:"count" validate:"omitempty,min=1,max=3"`
}

// Service shuffles and draws from the deck. The random source is guarded
// since *rand.Rand is not safe for concurrent use.
type Service struct {
	deck *Deck
	mu   sync.Mutex
	rnd  *rand.Rand
}

// NewService builds a draw service. A nil source seeds from the clock.
func NewService(deck *Deck, src rand.Source) (*Service, error) {
	if deck == nil {
		return nil, fmt.Errorf("tarot deck is required")
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Service{deck: deck, rnd: rand.New(src)}, nil
}

// Draw shuffles the full deck and returns the top count cards, each upright
// or reversed with equal probability.
func (s *Service) Draw(count int) ([]DrawnCard, error) {
	if count == 0 {
		count = DefaultDraw
	}
	if count < MinDraw || count > MaxDraw {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("カードは%d〜%d枚で指定してください", MinDraw, MaxDraw))
	}

	cards := s.deck.Cards()
	s.mu.Lock()
	s.rnd.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	upright := make([]bool, count)
	for i := range upright {
		upright[i] = s.rnd.Intn(2) == 0
	}
	s.mu.Unlock()

	out := make([]DrawnCard, 0, count)
	for i := 0; i < count; i++ {
		c := cards[i]
		drawn := DrawnCard{Position: i + 1, ID: c.ID, Name: c.Name, Upright: upright[i]}
		if upright[i] {
			drawn.Orientation = "正位置"
			drawn.Reading = c.Upright
		} else {
			drawn.Orientation = "逆位置"
			drawn.Reading = c.Reversed
		}
		out = append(out, drawn)
	}
	return out, nil
}
