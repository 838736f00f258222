package models

import (
	"fmt"

	"github.com/samber/lo"
)

const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

type Info struct {
	Name string
	Size string
}

// Filename is the ggml weights file whisper.cpp publishes for the model.
func (i Info) Filename() string {
	return fmt.Sprintf("ggml-%s.bin", i.Name)
}

// Known lists the upstream ggml models in ascending size.
var Known = []Info{
	{Name: "tiny", Size: "75 MB"},
	{Name: "tiny.en", Size: "75 MB"},
	{Name: "base", Size: "142 MB"},
	{Name: "base.en", Size: "142 MB"},
	{Name: "small", Size: "466 MB"},
	{Name: "small.en", Size: "466 MB"},
	{Name: "medium", Size: "1.5 GB"},
	{Name: "medium.en", Size: "1.5 GB"},
	{Name: "large-v1", Size: "2.9 GB"},
	{Name: "large-v2", Size: "2.9 GB"},
	{Name: "large-v3", Size: "2.9 GB"},
	{Name: "large-v3-turbo", Size: "1.5 GB"},
}

func Lookup(name string) (Info, bool) {
	return lo.Find(Known, func(i Info) bool { return i.Name == name })
}
