package patch

// File is the classified content of one user supplied file.
type File struct {
	Type FileType
	// Product of the first record. For packs this is representative only;
	// later slots may target another product or be invalid.
	Product Product
	Records []Record
}

// Classify decides by length whether data is a single patch or a patch
// pack and reads every record. Lengths matching neither return an error
// wrapping ErrUnsupportedFileType.
//
// data is copied once; every record references its own range of that
// copy and hands out further copies through Bytes.
func Classify(data []byte) (*File, error) {
	fileType, err := FileTypeForSize(int64(len(data)))
	if err != nil {
		return nil, err
	}

	arena := clone(data)
	f := &File{Type: fileType}

	switch fileType {
	case SinglePatch:
		f.Records = []Record{readHeader(arena, 0)}
	case PatchPack:
		f.Records = make([]Record, 0, PatchesPerPack)
		for i := 0; i < PatchesPerPack; i++ {
			start := i * SinglePatchSize
			end := start + SinglePatchSize
			f.Records = append(f.Records, readHeader(arena[start:end:end], start))
		}
	}

	if p, ok := f.Records[0].(*Patch); ok {
		f.Product = p.Product
	}
	return f, nil
}

// Err mirrors the record error of a single patch file. Packs never carry
// a file level error; their slots are checked one by one.
func (f *File) Err() error {
	if f.Type == SinglePatch && len(f.Records) == 1 {
		return f.Records[0].Err()
	}
	return nil
}

// Patches returns the valid records in offset order.
func (f *File) Patches() []*Patch {
	var out []*Patch
	for _, r := range f.Records {
		if p, ok := r.(*Patch); ok {
			out = append(out, p)
		}
	}
	return out
}
