package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Weynie/van-construction-web-sub000/pkg/template"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

func printTree(w io.Writer, ws *types.Workspace) {
	if len(ws.Projects) == 0 {
		fmt.Fprintln(w, "(empty workspace, run 'vcw init')")
		return
	}
	for _, project := range ws.Projects {
		fmt.Fprintf(w, "%s  %s\n", project.Name, dim(project.ID))
		for _, page := range project.Pages {
			fmt.Fprintf(w, "  %s  %s\n", page.Name, dim(page.ID))
			for _, tab := range page.Tabs {
				marker := " "
				if tab.IsActive {
					marker = "*"
				}
				lock := ""
				if tab.NeedsPassword {
					lock = " [locked]"
				}
				fmt.Fprintf(w, "   %s %s (%s)%s  %s\n", marker, tab.Name, tab.Kind, lock, dim(tab.ID))
			}
		}
	}
}

func printKinds(w io.Writer) {
	registry := template.MustNewRegistry()
	for _, kind := range registry.Kinds() {
		storage := "stored"
		if !registry.IsStorageBacked(kind) {
			storage = "template only"
		}
		fmt.Fprintf(w, "%-14s %s\n", kind, storage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Display names such as \"Snow Load\" or \"Seismic Hazards\" are accepted wherever a kind is expected.")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dim(id string) string {
	return "[" + id + "]"
}
