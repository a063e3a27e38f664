/*
Package facedeform detects the face of a photo, crops it with some padding around the detected region
and produces a stylized ("deformed") derivative of the crop.

The pipeline is a chain of independent stages: the raw bytes are decoded, a pigo cascade classifier
locates the faces, the first confirmed face in scan order is cropped and the crop is stylized by one of
the two supported variants. Every run ends with an Outcome, which is either a Success carrying both
artifacts, a NoFaceDetected, a DecodeFailure or a StylizeFailure.

The package provides a command line interface, which can process local files, directories, URLs
or stdin pipes, and an HTTP service. To check the supported commands type:

	$ facedeform --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"os"

		"github.com/esimov/facedeform"
	)

	func main() {
		cfg := facedeform.DefaultConfig()
		cfg.CascadeFile = "data/facefinder"

		locator, err := facedeform.NewPigoLocatorFromFile(cfg, nil)
		if err != nil {
			fmt.Printf("Error loading the cascade: %s", err.Error())
			return
		}
		p, err := facedeform.NewPipeline(cfg, locator)
		if err != nil {
			fmt.Printf("Error creating the pipeline: %s", err.Error())
			return
		}

		data, _ := os.ReadFile("photo.jpg")
		switch out := p.Run("photo", data).(type) {
		case facedeform.Success:
			// out.Cropped and out.Deformed hold the generated images.
		case facedeform.NoFaceDetected:
			fmt.Println("no face detected")
		default:
			fmt.Printf("Error processing the photo: %v", out)
		}
	}
*/
package facedeform
