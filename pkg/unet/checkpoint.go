package unet

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	checkpointMagic   int32 = 20260830
	checkpointVersion int32 = 1
)

// Save writes the model configuration and parameters as a little-endian
// binary checkpoint.
func (m *Model) Save(w io.Writer) error {
	header := []int32{
		checkpointMagic,
		checkpointVersion,
		int32(m.Config.Channels),
		int32(m.Config.ImgSize),
		int32(m.Config.Hidden),
		int32(m.Config.TimeEmbed),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("unet: writing checkpoint header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Params.Memory); err != nil {
		return fmt.Errorf("unet: writing checkpoint parameters: %w", err)
	}
	return nil
}

// Load reads a checkpoint previously written by Save.
func Load(r io.Reader) (*Model, error) {
	header := make([]int32, 6)
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("unet: reading checkpoint header: %w", err)
	}
	if header[0] != checkpointMagic || header[1] != checkpointVersion {
		return nil, fmt.Errorf("unet: invalid checkpoint header")
	}
	m := &Model{
		Config: Config{
			Channels:  int(header[2]),
			ImgSize:   int(header[3]),
			Hidden:    int(header[4]),
			TimeEmbed: int(header[5]),
		},
	}
	if m.Config.Channels <= 0 || m.Config.ImgSize <= 0 || m.Config.Hidden <= 0 || m.Config.TimeEmbed <= 0 {
		return nil, fmt.Errorf("unet: invalid checkpoint dimensions")
	}
	m.Params.Init(m.Config)
	m.Gradients.Init(m.Config)
	if err := binary.Read(r, binary.LittleEndian, m.Params.Memory); err != nil {
		return nil, fmt.Errorf("unet: reading checkpoint parameters: %w", err)
	}
	return m, nil
}

// SaveFile saves a checkpoint to path.
func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Save(f)
}

// LoadFile loads a checkpoint from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
