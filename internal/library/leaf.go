package library

import (
	"fmt"
	"strconv"

	"darkframes/internal/axis"
	"darkframes/internal/container"
	"darkframes/internal/frame"
	"darkframes/internal/gridtree"
)

// groupPath maps a key to its container path, one decimal group per axis.
func groupPath(key gridtree.Key) []string {
	path := make([]string, len(key))
	for i, v := range key {
		path[i] = strconv.Itoa(v)
	}
	return path
}

func keyFromPath(path []string, depth int) (gridtree.Key, error) {
	if len(path) != depth {
		return nil, fmt.Errorf("%w: group path %v has depth %d, want %d", axis.ErrConfiguration, path, len(path), depth)
	}
	key := make(gridtree.Key, depth)
	for i, p := range path {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: group name %q is not an integer", axis.ErrConfiguration, p)
		}
		key[i] = v
	}
	return key, nil
}

func encodeLeaf(key gridtree.Key, leaf gridtree.Leaf) (container.Entry, error) {
	cfg, err := container.EncodeConfig(leaf.Config)
	if err != nil {
		return container.Entry{}, err
	}
	return container.Entry{
		Path: groupPath(key),
		Dataset: container.Dataset{
			DType: leaf.Image.DType.String(),
			Shape: leaf.Image.Shape,
			Data:  leaf.Image.Data,
		},
		Attrs: map[string][]byte{container.AttrCameraConfig: cfg},
	}, nil
}

func decodeLeaf(entry container.Entry) (gridtree.Leaf, error) {
	dtype, err := frame.ParseDType(entry.Dataset.DType)
	if err != nil {
		return gridtree.Leaf{}, err
	}
	img := frame.Image{DType: dtype, Shape: entry.Dataset.Shape, Data: entry.Dataset.Data}
	if err := img.Validate(); err != nil {
		return gridtree.Leaf{}, err
	}
	cfg := frame.Config{}
	if raw, ok := entry.Attrs[container.AttrCameraConfig]; ok {
		if cfg, err = container.DecodeConfig(raw); err != nil {
			return gridtree.Leaf{}, err
		}
	}
	return gridtree.Leaf{Image: img, Config: cfg}, nil
}
