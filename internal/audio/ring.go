package audio

// sampleQueue - растущая FIFO-очередь сэмплов. Не потокобезопасна: владелец
// держит свой мьютекс только на время копирования.
type sampleQueue struct {
	buf  []float32
	head int
}

func (q *sampleQueue) len() int { return len(q.buf) - q.head }

func (q *sampleQueue) write(s []float32) {
	// Сдвигаем данные в начало, когда прочитанная часть перевешивает.
	if q.head > 0 && q.head >= len(q.buf)/2 {
		n := copy(q.buf, q.buf[q.head:])
		q.buf = q.buf[:n]
		q.head = 0
	}
	q.buf = append(q.buf, s...)
}

// read копирует до len(dst) сэмплов и возвращает их число.
func (q *sampleQueue) read(dst []float32) int {
	n := copy(dst, q.buf[q.head:])
	q.head += n
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	}
	return n
}

func (q *sampleQueue) reset() {
	q.buf = q.buf[:0]
	q.head = 0
}

// recentRing хранит последние cap сэмплов, старые вытесняются.
type recentRing struct {
	buf  []float32
	next int
	full bool
}

func newRecentRing(capacity int) recentRing {
	return recentRing{buf: make([]float32, capacity)}
}

func (r *recentRing) write(s []float32) {
	if len(s) >= len(r.buf) {
		copy(r.buf, s[len(s)-len(r.buf):])
		r.next = 0
		r.full = true
		return
	}
	for len(s) > 0 {
		n := copy(r.buf[r.next:], s)
		s = s[n:]
		r.next += n
		if r.next == len(r.buf) {
			r.next = 0
			r.full = true
		}
	}
}

func (r *recentRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// last копирует до n самых свежих сэмплов в хронологическом порядке.
func (r *recentRing) last(n int) []float32 {
	size := r.len()
	n = min(n, size)
	out := make([]float32, n)
	start := (r.next - n + len(r.buf)) % len(r.buf)
	if !r.full {
		start = r.next - n
	}
	k := copy(out, r.buf[start:min(start+n, len(r.buf))])
	copy(out[k:], r.buf[:n-k])
	return out
}

func (r *recentRing) reset() {
	r.next = 0
	r.full = false
}
