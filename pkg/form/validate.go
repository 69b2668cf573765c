// Package form turns the raw values of the crop form into a CropRequest and
// drives the job through Idle, Validating, Running and its final state.
package form

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/menta2k/detect-cropper/pkg/labels"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// Dialog titles
const (
	TitleInputError = "Input Error"
	TitleSuccess    = "Success"
	TitleError      = "Error"
)

// Validation messages shown to the user
const (
	MsgMissingFields  = "Please select all fields."
	MsgUnknownClass   = "Please select a class from the list."
	MsgInvalidSize    = "Please enter valid positive integers for max width and max height."
	MsgInvalidPadding = "Please enter valid non-negative integers for padding."
)

// ErrValidation matches every *ValidationError
var ErrValidation = errors.New("invalid form input")

// ValidationError carries the message to show in the warning dialog
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Input holds the form fields exactly as typed
type Input struct {
	SourceDir string `json:"source_dir"`
	OutputDir string `json:"output_dir"`
	ClassName string `json:"class_name"`

	Resize    bool   `json:"resize"`
	MaxWidth  string `json:"max_width"`
	MaxHeight string `json:"max_height"`

	Padding       bool   `json:"padding"`
	PaddingTop    string `json:"padding_top"`
	PaddingBottom string `json:"padding_bottom"`
	PaddingLeft   string `json:"padding_left"`
	PaddingRight  string `json:"padding_right"`
}

var validate = validator.New()

// Validate checks in against the label set and builds the job request.
// Numeric fields are only looked at when their option is enabled.
func Validate(in Input, names *labels.Labels) (types.CropRequest, error) {
	source := strings.TrimSpace(in.SourceDir)
	output := strings.TrimSpace(in.OutputDir)
	class := strings.TrimSpace(in.ClassName)

	if source == "" || output == "" || class == "" {
		return types.CropRequest{}, &ValidationError{Field: missingField(source, output), Message: MsgMissingFields}
	}

	classID, class, ok := resolveClass(class, names)
	if !ok {
		return types.CropRequest{}, &ValidationError{Field: "class_name", Message: MsgUnknownClass}
	}

	req := types.CropRequest{
		SourceDir: source,
		OutputDir: output,
		ClassID:   classID,
		ClassName: class,
	}

	if in.Resize {
		size, ok := parseSize(in.MaxWidth, in.MaxHeight)
		if !ok {
			return types.CropRequest{}, &ValidationError{Field: "resize", Message: MsgInvalidSize}
		}
		req.Resize = &size
	}

	if in.Padding {
		pad, ok := parsePadding(in)
		if !ok {
			return types.CropRequest{}, &ValidationError{Field: "padding", Message: MsgInvalidPadding}
		}
		req.Padding = &pad
	}

	return req, nil
}

// resolveClass accepts a class name or its numeric id
func resolveClass(class string, names *labels.Labels) (int, string, bool) {
	if id, err := names.IndexOf(class); err == nil {
		return id, class, true
	}
	id, err := strconv.Atoi(class)
	if err != nil {
		return 0, "", false
	}
	name, err := names.Name(id)
	if err != nil {
		return 0, "", false
	}
	return id, name, true
}

func missingField(source, output string) string {
	switch {
	case source == "":
		return "source_dir"
	case output == "":
		return "output_dir"
	}
	return "class_name"
}

func parseSize(w, h string) (types.MaxSize, bool) {
	var size types.MaxSize
	var err error
	if size.Width, err = atoi(w); err != nil {
		return size, false
	}
	if size.Height, err = atoi(h); err != nil {
		return size, false
	}
	return size, validate.Struct(size) == nil
}

func parsePadding(in Input) (types.Padding, bool) {
	var pad types.Padding
	fields := []struct {
		dst *int
		raw string
	}{
		{&pad.Top, in.PaddingTop},
		{&pad.Bottom, in.PaddingBottom},
		{&pad.Left, in.PaddingLeft},
		{&pad.Right, in.PaddingRight},
	}
	for _, f := range fields {
		v, err := atoi(f.raw)
		if err != nil {
			return pad, false
		}
		*f.dst = v
	}
	return pad, validate.Struct(pad) == nil
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
