package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/raymyers/ctypemap/pkg/ctypes"
	"github.com/raymyers/ctypemap/pkg/model"
	"github.com/spf13/cobra"
)

var svgOutput string

// Memory map geometry, in pixels
const (
	mapWidth   = 640
	mapMargin  = 20
	rowHeight  = 24
	titleSpace = 40
)

func newSVGCmd(out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "svg STRUCT files...",
		Short: "Draw the memory map of a struct as SVG",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildModel(cmd.Context(), args[1:], errOut)
			if err != nil {
				return err
			}
			l, err := findStruct(m, args[0])
			if err != nil {
				fmt.Fprintf(errOut, "ctypemap: %v\n", err)
				return err
			}

			w := out
			if svgOutput != "" {
				f, err := os.Create(svgOutput)
				if err != nil {
					fmt.Fprintf(errOut, "ctypemap: error creating %s: %v\n", svgOutput, err)
					return err
				}
				defer f.Close()
				w = f
			}
			writeMemoryMap(w, l)
			return nil
		},
	}
	cmd.Flags().StringVarP(&svgOutput, "output", "o", "", "Write the SVG to a file instead of stdout")
	return cmd
}

// findStruct accepts "Name", "struct Name" or a typedef naming a struct
func findStruct(m *model.Model, name string) (*ctypes.StructLayout, error) {
	for _, key := range []string{name, "struct " + strings.TrimPrefix(name, "struct ")} {
		e, ok := m.Lookup(key)
		if !ok {
			continue
		}
		switch {
		case e.Struct != nil:
			return e.Struct.Layout, nil
		case e.Typedef != nil:
			if st, isStruct := e.Typedef.Resolved.(ctypes.Tstruct); isStruct {
				return st.Layout, nil
			}
		}
	}
	return nil, fmt.Errorf("no struct named %s", name)
}

type mapRow struct {
	offset int64
	size   int64
	label  string
	hole   bool
}

// writeMemoryMap draws one row per member and per padding hole, in
// offset order
func writeMemoryMap(w io.Writer, l *ctypes.StructLayout) {
	var rows []mapRow
	for _, f := range l.Fields {
		rows = append(rows, mapRow{
			offset: f.Offset,
			size:   f.Type.Size(),
			label:  fmt.Sprintf("%s  %s", f.Name, f.Type),
		})
	}
	for _, h := range l.Holes {
		rows = append(rows, mapRow{offset: h.Offset, size: h.Size, label: "padding", hole: true})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].offset < rows[j].offset })

	height := titleSpace + len(rows)*rowHeight + mapMargin
	canvas := svg.New(w)
	canvas.Start(mapWidth, height)
	canvas.Text(mapMargin, mapMargin+4,
		fmt.Sprintf("struct %s  size=%d align=%d", l.Name, l.Size, l.Align),
		"font-family:monospace;font-size:14px;font-weight:bold")

	for i, r := range rows {
		y := titleSpace + i*rowHeight
		fill := "fill:#dbe9f6;stroke:#333"
		if r.hole {
			fill = "fill:#e0e0e0;stroke:#999;stroke-dasharray:4,2"
		}
		canvas.Rect(mapMargin+60, y, mapWidth-2*mapMargin-60, rowHeight, fill)
		canvas.Text(mapMargin, y+16, fmt.Sprintf("%4d", r.offset), "font-family:monospace;font-size:12px")
		canvas.Text(mapMargin+68, y+16, fmt.Sprintf("%s (%d)", r.label, r.size), "font-family:monospace;font-size:12px")
	}
	canvas.End()
}
