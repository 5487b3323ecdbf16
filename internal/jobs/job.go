package jobs

import (
	"crypto/rand"
	"math/big"

	"github.com/mtr002/job-system/internal/interfaces"
)

const (
	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	idLength   = 10
)

var alphabetSize = big.NewInt(int64(len(idAlphabet)))

// NewID returns a random job id of idLength characters from idAlphabet.
// Ids are unique only with high probability (62^10 possibilities); a
// collision would make two jobs share history and result entries.
func NewID() string {
	buf := make([]byte, idLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		buf[i] = idAlphabet[n.Int64()]
	}
	return string(buf)
}

// NewJob creates a job with a fresh id.
func NewJob(jobType, input string) *interfaces.Job {
	return &interfaces.Job{
		ID:    NewID(),
		Type:  jobType,
		Input: input,
	}
}
