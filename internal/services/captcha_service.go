package services

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CaptchaService guards the sign-up form with a small arithmetic question.
type CaptchaService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateMathProblem returns a display string (e.g. "3 + 5") and the integer answer.
// Store the answer in the session and show the question.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	s.mu.Lock()
	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)
	op := s.rnd.Intn(2)
	s.mu.Unlock()

	if op == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}

// Verify compares a submitted answer with the one stored in the session.
// Session codecs may hand the stored answer back as any integer kind.
func (s *CaptchaService) Verify(stored interface{}, submitted string) bool {
	got, err := strconv.Atoi(strings.TrimSpace(submitted))
	if err != nil {
		return false
	}
	switch want := stored.(type) {
	case int:
		return got == want
	case int64:
		return int64(got) == want
	case float64:
		return float64(got) == want
	default:
		return false
	}
}
