package library

import (
	"strconv"
	"strings"

	"github.com/james-see/circuitpatch/pkg/patch"
)

// FileReport is the display form of an entry.
type FileReport struct {
	Name      string        `json:"name"`
	Size      int64         `json:"size"`
	Processed bool          `json:"processed"`
	FileType  string        `json:"file_type,omitempty"`
	Product   string        `json:"product,omitempty"`
	Converted bool          `json:"converted"`
	Error     string        `json:"error,omitempty"`
	Patches   []PatchReport `json:"patches,omitempty"`
}

// PatchReport describes one slot of a file.
type PatchReport struct {
	Slot     int    `json:"slot"`
	Product  string `json:"product,omitempty"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report builds a snapshot of e for display.
func (l *Library) Report(e *Entry) FileReport {
	l.mu.Lock()
	meta, converted := e.meta, e.converted
	l.mu.Unlock()

	r := FileReport{
		Name:      e.source.Name(),
		Size:      e.source.Size(),
		Processed: meta != nil,
		Converted: converted,
	}
	if meta == nil {
		return r
	}
	if meta.Err != nil {
		r.Error = meta.Err.Error()
		return r
	}

	f := meta.File
	r.FileType = f.Type.String()
	if f.Product != patch.NoProduct {
		r.Product = f.Product.DisplayName()
	}
	if err := f.Err(); err != nil {
		r.Error = err.Error()
	}

	r.Patches = make([]PatchReport, 0, len(f.Records))
	for i, rec := range f.Records {
		pr := PatchReport{Slot: i + 1}
		switch v := rec.(type) {
		case *patch.Patch:
			pr.Product = v.Product.DisplayName()
			pr.Name = v.Name
			pr.Category = v.Category.String()
			pr.Genre = v.Genre.String()
		case *patch.Invalid:
			pr.Error = v.Kind.Error()
		}
		r.Patches = append(r.Patches, pr)
	}
	return r
}

// Reports builds a report for every entry in list order.
func (l *Library) Reports() []FileReport {
	entries := l.Entries()
	out := make([]FileReport, 0, len(entries))
	for _, e := range entries {
		out = append(out, l.Report(e))
	}
	return out
}

// Summary is a one line description of a report
func (r FileReport) Summary() string {
	switch {
	case !r.Processed:
		return "processing"
	case r.FileType == "":
		return r.Error
	}

	var parts []string
	parts = append(parts, r.FileType)
	if r.Product != "" {
		parts = append(parts, r.Product)
	}
	valid := 0
	for _, p := range r.Patches {
		if p.Error == "" {
			valid++
		}
	}
	if r.FileType == patch.PatchPack.String() {
		parts = append(parts, strconv.Itoa(valid)+"/"+strconv.Itoa(len(r.Patches))+" patches")
	} else if len(r.Patches) == 1 && r.Patches[0].Name != "" {
		parts = append(parts, "\""+r.Patches[0].Name+"\"")
	}
	if r.Error != "" {
		parts = append(parts, r.Error)
	}
	if r.Converted {
		parts = append(parts, "converted")
	}
	return strings.Join(parts, " · ")
}
