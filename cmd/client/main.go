// Command client is a terminal practice client: it fetches a prompt, streams
// microphone audio to the transcription relay and prints progressively
// refined transcripts, then asks the feedback endpoint for a review.
package main

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lingopal/server/internal/audio"
	"github.com/lingopal/server/internal/transcript"
)

const (
	sampleRate = 16000
	channels   = 1
)

type controlMessage struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Audio    string `json:"audio,omitempty"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
	Data    *struct {
		Channel struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channel"`
		IsFinal bool `json:"is_final"`
	} `json:"data,omitempty"`
}

func main() {
	godotenv.Load()

	serverURL := flag.String("server", "http://localhost:5001", "relay server base URL")
	wsURL := flag.String("ws", "ws://localhost:5001/ws/transcribe", "transcription websocket URL")
	language := flag.String("language", "en", "practice language")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	prompt, err := fetchPrompt(*serverURL, *language)
	if err != nil {
		logger.Warn("Could not fetch prompt", zap.Error(err))
		prompt = "Describe your morning routine."
	}
	fmt.Printf("\nRead this aloud:\n\n    %s\n\n", prompt)

	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		logger.Fatal("Failed to connect to relay", zap.Error(err))
	}
	defer conn.Close()

	var writeMu sync.Mutex
	sendJSON := func(msg controlMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := sendJSON(controlMessage{Type: "start", Language: *language}); err != nil {
		logger.Fatal("Failed to send start", zap.Error(err))
	}

	var acc transcript.Accumulator
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg serverMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warn("Bad server message", zap.Error(err))
				continue
			}
			switch msg.Type {
			case "status":
				fmt.Printf("\r[%s]\n", msg.Message)
			case "error":
				fmt.Printf("\rerror: %s\n", msg.Message)
			case "transcript":
				if msg.Data == nil || len(msg.Data.Channel.Alternatives) == 0 {
					continue
				}
				acc.Apply(msg.Data.Channel.Alternatives[0].Transcript, msg.Data.IsFinal)
				fmt.Printf("\r\033[K%s", acc.Text())
				if msg.Data.IsFinal {
					fmt.Println()
				}
			}
		}
	}()

	capture, err := startCapture(func(frame []float32) {
		payload := base64.StdEncoding.EncodeToString(audio.EncodePCM(frame))
		if err := sendJSON(controlMessage{Type: "audio", Audio: payload}); err != nil {
			logger.Warn("Failed to send audio frame", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("Failed to open microphone", zap.Error(err))
	}

	fmt.Println("Recording... press Enter to stop.")
	bufio.NewReader(os.Stdin).ReadString('\n')

	capture.stop()
	sendJSON(controlMessage{Type: "stop"})

	// Keep the channel open briefly so trailing final transcripts arrive.
	select {
	case <-done:
	case <-time.After(1500 * time.Millisecond):
	}
	conn.Close()

	final := acc.Final()
	if final == "" {
		fmt.Println("\nNo speech was transcribed.")
		return
	}

	fmt.Printf("\nYou said: %s\n", final)

	feedback, err := fetchFeedback(*serverURL, prompt, final)
	if err != nil {
		logger.Warn("Could not fetch feedback", zap.Error(err))
		return
	}
	fmt.Printf("\nFeedback:\n%s\n", feedback)
}

// mic wraps a malgo capture device.
type mic struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

func (m *mic) stop() {
	m.device.Stop()
	m.device.Uninit()
	m.ctx.Uninit()
	m.ctx.Free()
}

// startCapture opens the default capture device at 16 kHz mono float32 and
// delivers fixed-size frames to onFrame.
func startCapture(onFrame func([]float32)) (*mic, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = channels
	deviceConfig.SampleRate = sampleRate

	var pending []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			pending = append(pending, bytesToFloat32(data)...)
			for len(pending) >= audio.FrameSize {
				frame := make([]float32, audio.FrameSize)
				copy(frame, pending[:audio.FrameSize])
				pending = pending[audio.FrameSize:]
				onFrame(frame)
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}

	return &mic{ctx: ctx, device: device}, nil
}

func bytesToFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func fetchPrompt(baseURL, language string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/prompt?language=%s", baseURL, language))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Prompt, nil
}

func fetchFeedback(baseURL, prompt, said string) (string, error) {
	message := fmt.Sprintf(
		"I am practicing speaking. The prompt was: %q. I said: %q. "+
			"Give short feedback on my grammar and phrasing.", prompt, said)

	payload, _ := json.Marshal(map[string]string{"message": message})
	resp, err := http.Post(baseURL+"/api/v1/feedback", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feedback endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Content, nil
}
