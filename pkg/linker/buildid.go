package linker

import (
	"crypto/sha256"
	"debug/elf"
	"encoding/binary"
	"golang.org/x/sync/errgroup"
)

const buildIdShardSize = 1024 * 1024

// BuildIdSection is .note.gnu.build-id. The note header and name are
// written by CopyBuf; the hash itself can only be computed once
// every other chunk's bytes are final, so WriteBuildId runs as the
// very last step of the link, after SetOsecOffsets has stopped moving
// anything.
type BuildIdSection struct {
	Chunk
}

func NewBuildIdSection() *BuildIdSection {
	b := &BuildIdSection{Chunk: NewChunk()}
	b.Name = ".note.gnu.build-id"
	b.Shdr.Type = uint32(elf.SHT_NOTE)
	b.Shdr.Flags = uint64(elf.SHF_ALLOC)
	b.Shdr.AddrAlign = 4
	b.Shdr.Size = 16 + sha256.Size
	return b
}

func (b *BuildIdSection) UpdateShdr(ctx *Context) {}

func (b *BuildIdSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[b.Shdr.Offset:]
	for i := 0; i < int(b.Shdr.Size); i++ {
		base[i] = 0
	}

	binary.LittleEndian.PutUint32(base[0:], 4)
	binary.LittleEndian.PutUint32(base[4:], sha256.Size)
	binary.LittleEndian.PutUint32(base[8:], 3) // NT_GNU_BUILD_ID
	copy(base[12:], "GNU\x00")
}

// WriteBuildId hashes the whole output file in fixed-size shards in
// parallel, then hashes the concatenation of shard digests into the
// reserved note payload. filesize/shardSize+1 shards means the final
// shard can be zero-length when filesize divides evenly; that shard's
// digest is still folded into the final hash, matching mold's literal
// computation rather than special-casing it away.
func (b *BuildIdSection) WriteBuildId(ctx *Context, filesize int64) error {
	numShards := int(filesize/buildIdShardSize) + 1
	shards := make([][sha256.Size]byte, numShards)

	var eg errgroup.Group
	for i := 0; i < numShards; i++ {
		i := i
		eg.Go(func() error {
			begin := int64(buildIdShardSize) * int64(i)
			size := int64(buildIdShardSize)
			if i == numShards-1 {
				size = filesize % buildIdShardSize
			}
			shards[i] = sha256.Sum256(ctx.Buf[begin : begin+size])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	flat := make([]byte, 0, numShards*sha256.Size)
	for _, s := range shards {
		flat = append(flat, s[:]...)
	}

	digest := sha256.Sum256(flat)
	copy(ctx.Buf[b.Shdr.Offset+16:], digest[:])
	return nil
}
