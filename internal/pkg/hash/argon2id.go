package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

var errArgon2Format = errors.New("hash: malformed argon2id hash")

// Argon2Params tunes Argon2id. Zero fields take the defaults below, which
// follow the OWASP baseline for interactive logins.
type Argon2Params struct {
	MemoryKiB uint32
	Time      uint32
	Threads   uint8
	// Concurrent caps derivations in flight; each one holds MemoryKiB.
	Concurrent int
}

func (p Argon2Params) withDefaults() Argon2Params {
	if p.MemoryKiB == 0 {
		p.MemoryKiB = 19 * 1024
	}
	if p.Time == 0 {
		p.Time = 2
	}
	if p.Threads == 0 {
		p.Threads = 1
	}
	if p.Concurrent <= 0 {
		p.Concurrent = 4
	}
	return p
}

// Argon2id stores hashes in the PHC string format:
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
type Argon2id struct {
	params Argon2Params
	pepper string
	slots  chan struct{}
}

func NewArgon2id(params Argon2Params, pepper string) *Argon2id {
	params = params.withDefaults()
	return &Argon2id{params: params, pepper: pepper, slots: make(chan struct{}, params.Concurrent)}
}

func (a *Argon2id) key(plaintext string, salt []byte, time, memory uint32, threads uint8, size int) []byte {
	a.slots <- struct{}{}
	defer func() { <-a.slots }()

	return argon2.IDKey([]byte(plaintext+a.pepper), salt, time, memory, threads, uint32(size))
}

func (a *Argon2id) Hash(plaintext string) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("hash: argon2id salt: %w", err)
	}

	p := a.params
	sum := a.key(plaintext, salt, p.Time, p.MemoryKiB, p.Threads, 32)

	enc := base64.RawStdEncoding
	out := fmt.Appendf(nil, "%sv=%d$m=%d,t=%d,p=%d$", argon2Prefix, argon2.Version, p.MemoryKiB, p.Time, p.Threads)
	out = enc.AppendEncode(out, salt)
	out = append(out, '$')
	return enc.AppendEncode(out, sum), nil
}

// Verify recomputes with the parameters recorded in hashed, so hashes made
// under older tuning keep verifying after the config changes.
func (a *Argon2id) Verify(hashed, plaintext string) bool {
	if plaintext == "" {
		return false
	}
	rec, err := parseArgon2(hashed)
	if err != nil {
		return false
	}
	sum := a.key(plaintext, rec.salt, rec.time, rec.memory, rec.threads, len(rec.sum))
	return subtle.ConstantTimeCompare(rec.sum, sum) == 1
}

type argon2Record struct {
	memory, time uint32
	threads      uint8
	salt, sum    []byte
}

func parseArgon2(hashed string) (argon2Record, error) {
	var rec argon2Record

	rest, ok := strings.CutPrefix(hashed, argon2Prefix)
	if !ok {
		return rec, errArgon2Format
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 || fields[0] != "v="+strconv.Itoa(argon2.Version) {
		return rec, errArgon2Format
	}

	for kv := range strings.SplitSeq(fields[1], ",") {
		k, v, _ := strings.Cut(kv, "=")
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return rec, errArgon2Format
		}
		switch k {
		case "m":
			rec.memory = uint32(n)
		case "t":
			rec.time = uint32(n)
		case "p":
			if n > 255 {
				return rec, errArgon2Format
			}
			rec.threads = uint8(n)
		default:
			return rec, errArgon2Format
		}
	}
	if rec.memory == 0 || rec.time == 0 || rec.threads == 0 {
		return rec, errArgon2Format
	}

	var err error
	if rec.salt, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil {
		return rec, errArgon2Format
	}
	if rec.sum, err = base64.RawStdEncoding.DecodeString(fields[3]); err != nil || len(rec.sum) == 0 {
		return rec, errArgon2Format
	}
	return rec, nil
}
