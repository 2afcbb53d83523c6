package table_test

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/render"
	"github.com/lvillar/pdfexport/table"
)

func ExampleTable_Layout() {
	snap, err := config.Load([]byte(`<configuration>
		<TableFields>
			<items>
				<col id="qty"><ColTitle>Qty</ColTitle><ColWidths>50</ColWidths></col>
				<col id="name"><ColTitle>Name</ColTitle></col>
			</items>
		</TableFields>
	</configuration>`))
	if err != nil {
		panic(err)
	}
	rows := []map[string]any{
		{"qty": 3, "name": "Widget"},
		{"qty": 12, "name": "Gadget"},
	}

	f := draw.Field{Name: "items", Page: 1, Rect: draw.Rect{Left: 50, Bottom: 400, Right: 350, Top: 700}}
	grid, ok, err := table.New(render.New(halfEm{}, zerolog.Nop()), f).
		SetSpec(table.NewSpec(snap, "items", rows)).
		Layout()
	if err != nil || !ok {
		panic(err)
	}

	fmt.Println(grid.Columns)
	for i, c := range grid.Cells {
		fmt.Print(c.Spans[0].Text)
		if i%len(grid.Columns) == len(grid.Columns)-1 {
			fmt.Println()
		} else {
			fmt.Print(" | ")
		}
	}
	// Output:
	// [225 75]
	// Name | Qty
	// Widget | 3
	// Gadget | 12
}
