// Package all registers every backend adapter. Import it for side effects
// from binaries that want the full provider set.
package all

import (
	_ "github.com/murmurlabs/verbatim/pkg/provider/assemblyai"
	_ "github.com/murmurlabs/verbatim/pkg/provider/dashscope"
	_ "github.com/murmurlabs/verbatim/pkg/provider/deepgram"
	_ "github.com/murmurlabs/verbatim/pkg/provider/elevenlabs"
	_ "github.com/murmurlabs/verbatim/pkg/provider/fireworks"
	_ "github.com/murmurlabs/verbatim/pkg/provider/gladia"
	_ "github.com/murmurlabs/verbatim/pkg/provider/mistral"
	_ "github.com/murmurlabs/verbatim/pkg/provider/openai"
	_ "github.com/murmurlabs/verbatim/pkg/provider/soniox"
)
