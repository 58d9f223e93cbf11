package chunked

// chunk is an ordered, non-empty list of blocks. Its block count is
// always a power of two: a new chunk holds one block, and a merge only
// joins two chunks of equal block count.
type chunk struct {
	blocks [][]byte
}

func newChunk(block []byte) chunk {
	return chunk{blocks: [][]byte{block}}
}

func (c chunk) blockCount() int {
	return len(c.blocks)
}

func (c chunk) size() int {
	n := 0
	for _, b := range c.blocks {
		n += len(b)
	}
	return n
}

// merge concatenates the blocks of two chunks of equal block count into
// one chunk of double the block count, per the 2048-merge rule.
func merge(a, b chunk) chunk {
	blocks := make([][]byte, 0, len(a.blocks)+len(b.blocks))
	blocks = append(blocks, a.blocks...)
	blocks = append(blocks, b.blocks...)
	return chunk{blocks: blocks}
}

// bytes concatenates all of a chunk's blocks into one byte slice.
func (c chunk) bytes() []byte {
	out := make([]byte, 0, c.size())
	for _, b := range c.blocks {
		out = append(out, b...)
	}
	return out
}

// appendBlock appends a new singleton chunk holding block to chunks,
// then repeatedly merges the last two chunks while they hold an equal
// number of blocks. This is the "2048 game" merge: it keeps the
// sequence of block counts strictly decreasing front-to-back, each a
// power of two, which bounds the chunk list to O(log n) entries for n
// flushed blocks.
func appendBlock(chunks []chunk, block []byte) []chunk {
	chunks = append(chunks, newChunk(block))

	for len(chunks) >= 2 {
		last := chunks[len(chunks)-1]
		prev := chunks[len(chunks)-2]
		if last.blockCount() != prev.blockCount() {
			break
		}
		chunks = chunks[:len(chunks)-2]
		chunks = append(chunks, merge(prev, last))
	}

	return chunks
}

// sizes returns the byte size of each chunk, in order — the contents of
// the manifest.
func sizes(chunks []chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.size()
	}
	return out
}

// totalBlocks returns the total number of blocks across all chunks.
func totalBlocks(chunks []chunk) int {
	n := 0
	for _, c := range chunks {
		n += c.blockCount()
	}
	return n
}
