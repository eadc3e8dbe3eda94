//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark/audio"
	"github.com/himanishpuri/soundmark/pkg/soundmark/fingerprint"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorTooShort
	ErrorProcessing
	ErrorNoFingerprints
)

// soundmarkFingerprint runs the default pipeline on raw PCM samples and
// returns the fingerprints in the shape POST /api/search/fingerprints takes.
// Returns: {error: number, data: array | string}
func soundmarkFingerprint(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}

	audioDataJS, sampleRateJS, channelsJS := args[0], args[1], args[2]
	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float32Array")
	}
	if sampleRateJS.Type() != js.TypeNumber || channelsJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and channels must be numbers")
	}

	sampleRate := sampleRateJS.Int()
	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}

	interleaved := make([]float32, length)
	for i := range interleaved {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		interleaved[i] = float32(val.Float())
	}

	mono, err := audio.DownmixToMono(interleaved, channelsJS.Int())
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	res, err := fingerprint.DefaultPipeline().Run(audio.Sample{Samples: mono, SampleRate: sampleRate})
	if errors.Is(err, models.ErrContractViolation) {
		return makeErrorResponse(ErrorTooShort, err.Error())
	}
	if err != nil {
		return makeErrorResponse(ErrorProcessing, err.Error())
	}
	if len(res.Fingerprints) == 0 {
		return makeErrorResponse(ErrorNoFingerprints, "No fingerprints generated (audio may be silent or too short)")
	}

	out := js.Global().Get("Array").New(len(res.Fingerprints))
	for i, fp := range res.Fingerprints {
		obj := js.Global().Get("Object").New()
		obj.Set("address", fp.Address)
		obj.Set("anchor_address", fp.AnchorAddress)
		obj.Set("anchor_time", fp.AnchorTime)
		out.SetIndex(i, obj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", out)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}

	js.Global().Set("soundmarkFingerprint", js.FuncOf(soundmarkFingerprint))
	logf("log", "soundmarkFingerprint registered")

	if window := js.Global().Get("window"); !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	} else {
		logf("error", "window object is undefined, wasmReady not dispatched")
	}

	select {}
}
