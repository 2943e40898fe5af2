package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// CaptchaService produces the small arithmetic challenge shown on the
// sign-up form.
type CaptchaService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCaptchaService(seed int64) *CaptchaService {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CaptchaService{rnd: rand.New(rand.NewSource(seed))}
}

// GenerateMathProblem returns a display string (e.g. "3 + 5") and the answer.
// The answer goes into the session, the question onto the page.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)
	if s.rnd.Intn(2) == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
