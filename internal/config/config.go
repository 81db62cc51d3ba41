package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              string
	OnnxRuntimeLib    string
	EncoderModelPath  string
	DecoderModelPath  string
	PalettePath       string
	ClassNamesPath    string
	DisplayDir        string
	GramNormalization string
	NumClasses        int
}

const checkpointDir = "segmentation/ckpt/ade20k-resnet50dilated-ppm_deepsup"

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		OnnxRuntimeLib:    getEnv("ONNXRUNTIME_LIB", ""),
		EncoderModelPath:  getEnv("ENCODER_MODEL", checkpointDir+"/encoder_epoch_20.onnx"),
		DecoderModelPath:  getEnv("DECODER_MODEL", checkpointDir+"/decoder_epoch_20.onnx"),
		PalettePath:       getEnv("PALETTE_PATH", "segmentation/data/color150.mat"),
		ClassNamesPath:    getEnv("CLASS_NAMES_PATH", "segmentation/data/object150_info.csv"),
		DisplayDir:        getEnv("DISPLAY_DIR", ""),
		GramNormalization: getEnv("GRAM_NORMALIZATION", "truncate"),
		NumClasses:        getEnvInt("NUM_CLASSES", 150),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}
