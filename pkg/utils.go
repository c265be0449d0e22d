package pkg

import (
	"github.com/rs/zerolog/log"

	"mixednb/pkg/io"
)

func printDataErrors(errors []io.DataError) {
	for _, err := range errors {
		log.Error().Int("Line", err.Line).Msgf("Error parsing data: %s", err.Error)
	}
}
