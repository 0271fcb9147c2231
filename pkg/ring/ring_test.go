package ring_test

import (
	"bytes"
	"strings"
	"testing"

	"zcring/pkg/ring"

	"github.com/pkg/errors"
)

func mustNew(t *testing.T, capacity int) *ring.Ring {
	t.Helper()
	rb, err := ring.New(capacity)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", capacity, err)
	}
	return rb
}

func checkSizes(t *testing.T, rb *ring.Ring, used int) {
	t.Helper()
	if rb.Used() != used {
		t.Fatalf("expect used %d but got %d", used, rb.Used())
	}
	if rb.Used()+rb.Avail() != rb.Cap() {
		t.Fatalf("expect used+avail == cap but got %d+%d != %d", rb.Used(), rb.Avail(), rb.Cap())
	}
	if rb.IsEmpty() != (used == 0) {
		t.Fatalf("expect IsEmpty %t with used %d", used == 0, used)
	}
	if rb.IsFull() != (used == rb.Cap()) {
		t.Fatalf("expect IsFull %t with used %d", used == rb.Cap(), used)
	}
}

func TestRing_New_PowerOfTwo(t *testing.T) {
	for _, capacity := range []int{0, 3, 100, -4, 513} {
		if _, err := ring.New(capacity); !errors.Is(err, ring.ErrInvalidArgument) {
			t.Fatalf("expect ErrInvalidArgument for capacity %d but got %v", capacity, err)
		}
	}
	for _, capacity := range []int{1, 2, 512} {
		rb := mustNew(t, capacity)
		if rb.Cap() != capacity {
			t.Fatalf("expect cap %d but got %d", capacity, rb.Cap())
		}
		checkSizes(t, rb, 0)
	}
}

func TestRing_FullEmpty(t *testing.T) {
	rb := mustNew(t, 512)

	data := bytes.Repeat([]byte{'a'}, 512)
	if n := rb.Put(data); n != 512 {
		t.Fatalf("expect write 512 bytes but got %d", n)
	}
	if !rb.IsFull() || rb.IsEmpty() || rb.Avail() != 0 {
		t.Fatalf("expect full ring but got full=%t empty=%t avail=%d", rb.IsFull(), rb.IsEmpty(), rb.Avail())
	}
	if n := rb.Put([]byte("x")); n != 0 {
		t.Fatalf("expect write 0 bytes into a full ring but got %d", n)
	}

	buf := make([]byte, 512)
	if n := rb.Get(buf); n != 512 {
		t.Fatalf("expect read 512 bytes but got %d", n)
	}
	if !rb.IsEmpty() || rb.IsFull() || rb.Avail() != 512 {
		t.Fatalf("expect empty ring but got full=%t empty=%t avail=%d", rb.IsFull(), rb.IsEmpty(), rb.Avail())
	}
	if n := rb.Get(buf); n != 0 {
		t.Fatalf("expect read 0 bytes from an empty ring but got %d", n)
	}
}

func TestRing_Scenario(t *testing.T) {
	rb := mustNew(t, 512)
	block := bytes.Repeat([]byte{'Z'}, 128)

	if n := rb.Put(block); n != 128 {
		t.Fatalf("expect write 128 bytes but got %d", n)
	}
	checkSizes(t, rb, 128)

	buf := make([]byte, 128)
	if n := rb.Get(buf); n != 128 || !bytes.Equal(buf, block) {
		t.Fatalf("expect to read back the block but got %d bytes %q", n, buf[:n])
	}

	rb.Put(block)
	rb.Put(block)
	checkSizes(t, rb, 256)

	all, err := rb.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if !bytes.Equal(all, append(append([]byte{}, block...), block...)) {
		t.Fatalf("expect 256 Z bytes but got %d bytes %q", len(all), all)
	}
	checkSizes(t, rb, 0)

	all, err = rb.GetAll()
	if err != nil || all != nil {
		t.Fatalf("expect nil from an empty ring but got %q, %v", all, err)
	}
}

func TestRing_RoundTrip_Wraparound(t *testing.T) {
	rb := mustNew(t, 64)

	var written, read []byte
	chunk := 0
	for i := 0; i < 200; i++ {
		chunk = (chunk*7 + 5) % 50
		data := []byte(strings.Repeat(string(rune('a'+i%26)), chunk))
		n := rb.Put(data)
		written = append(written, data[:n]...)
		checkSizes(t, rb, len(written)-len(read))

		buf := make([]byte, (chunk*3)%41)
		n = rb.Get(buf)
		read = append(read, buf[:n]...)
		checkSizes(t, rb, len(written)-len(read))
	}
	rest, err := rb.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	read = append(read, rest...)
	if !bytes.Equal(written, read) {
		t.Fatalf("round trip mismatch: wrote %d bytes, read %d bytes", len(written), len(read))
	}
}

func TestRing_Peek_Runs(t *testing.T) {
	rb := mustNew(t, 16)

	// move the cursors to 12 so free space wraps
	rb.Put(make([]byte, 12))
	rb.Get(make([]byte, 12))

	run := rb.PeekProducer(0, 10)
	if len(run) != 4 {
		t.Fatalf("expect the first producer run to stop at the wrap with 4 bytes but got %d", len(run))
	}
	copy(run, "abcd")
	next := rb.PeekProducer(len(run), 10-len(run))
	if len(next) != 6 {
		t.Fatalf("expect the second producer run to hold 6 bytes but got %d", len(next))
	}
	copy(next, "efghij")
	rb.Produced(10)
	checkSizes(t, rb, 10)

	if run := rb.PeekConsumer(0, 100); string(run) != "abcd" {
		t.Fatalf("expect consumer run abcd but got %q", run)
	}
	if run := rb.PeekConsumer(4, 100); string(run) != "efghij" {
		t.Fatalf("expect consumer run efghij but got %q", run)
	}
	if run := rb.PeekConsumer(6, 2); string(run) != "gh" {
		t.Fatalf("expect consumer run gh but got %q", run)
	}
	if run := rb.PeekConsumer(10, 1); len(run) != 0 {
		t.Fatalf("expect no run past the used bytes but got %q", run)
	}
	if run := rb.PeekProducer(6, 1); len(run) != 0 {
		t.Fatalf("expect no run past the free bytes but got %d bytes", len(run))
	}

	rb.Consumed(4)
	if got := string(rb.Bytes()); got != "efghij" {
		t.Fatalf("expect efghij after consuming 4 bytes but got %q", got)
	}
	checkSizes(t, rb, 6)
}

func TestRing_PeekCommit_EqualsPut(t *testing.T) {
	a := mustNew(t, 32)
	b := mustNew(t, 32)

	chunks := []string{"hello ", "circular ", "world", "!!", "0123456789abcdef"}
	for i, c := range chunks {
		n := a.Put([]byte(c))

		m := 0
		for m < len(c) {
			run := b.PeekProducer(m, len(c)-m)
			if len(run) == 0 {
				break
			}
			m += copy(run, c[m:])
		}
		b.Produced(m)

		if n != m {
			t.Fatalf("chunk %d: Put wrote %d bytes, peek+commit %d", i, n, m)
		}
		if !bytes.Equal(a.Bytes(), b.Bytes()) {
			t.Fatalf("chunk %d: contents differ: %q vs %q", i, a.Bytes(), b.Bytes())
		}

		// drain a little so later chunks wrap
		a.Get(make([]byte, 7))
		b.Get(make([]byte, 7))
	}
}

func TestRing_NegativeCommit(t *testing.T) {
	rb := mustNew(t, 8)
	rb.Put([]byte("abc"))

	rb.Produced(-1)
	checkSizes(t, rb, 3)
	rb.Consumed(-2)
	checkSizes(t, rb, 3)
	if got := string(rb.Bytes()); got != "abc" {
		t.Fatalf("expect abc after negative commits but got %q", got)
	}
}

func TestRing_Reinit(t *testing.T) {
	rb := mustNew(t, 8)
	rb.Put([]byte("abcdef"))
	rb.Get(make([]byte, 3))

	rb.Reinit()
	checkSizes(t, rb, 0)
	if rb.Cap() != 8 {
		t.Fatalf("expect cap 8 after Reinit but got %d", rb.Cap())
	}
	if n := rb.Put([]byte("12345678")); n != 8 {
		t.Fatalf("expect a full write after Reinit but got %d", n)
	}
	if got := string(rb.Bytes()); got != "12345678" {
		t.Fatalf("expect 12345678 but got %q", got)
	}
}

func TestRing_Budget(t *testing.T) {
	budget := ring.NewBudget(1024)

	a, err := ring.New(512, ring.WithAllocator(budget))
	if err != nil {
		t.Fatalf("first ring failed: %v", err)
	}
	if _, err := ring.New(512, ring.WithAllocator(budget)); err != nil {
		t.Fatalf("second ring failed: %v", err)
	}
	if _, err := ring.New(2, ring.WithAllocator(budget)); !errors.Is(err, ring.ErrOutOfMemory) {
		t.Fatalf("expect ErrOutOfMemory past the budget but got %v", err)
	}
	if budget.InUse() != 1024 {
		t.Fatalf("expect 1024 bytes in use but got %d", budget.InUse())
	}

	a.Release()
	a.Release()
	if budget.InUse() != 512 {
		t.Fatalf("expect 512 bytes in use after Release but got %d", budget.InUse())
	}
	if _, err := ring.New(512, ring.WithAllocator(budget)); err != nil {
		t.Fatalf("expect released bytes to be reusable but got %v", err)
	}
}

func TestHeapAllocator_Absurd(t *testing.T) {
	if _, err := ring.HeapAllocator.Alloc(-1); !errors.Is(err, ring.ErrInvalidArgument) {
		t.Fatalf("expect ErrInvalidArgument for a negative size but got %v", err)
	}
}
