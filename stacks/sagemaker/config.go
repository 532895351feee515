package sagemaker

import (
	"errors"
	"fmt"

	"github.com/picklr-io/datastacks/internal/config"
)

type Config struct {
	ModelID             string `context:"hugging_face_model_id"`
	Task                string `context:"hugging_face_task"`
	Image               string `context:"hugging_face_image"`
	ImageTag            string `context:"hugging_face_image_tag"`
	EndpointName        string `context:"sagemaker_endpoint_name"`
	InstanceType        string `context:"sagemaker_instance_type"`
	InitialInstances    int    `context:"sagemaker_initial_instance_count"`
	MinCapacity         int    `context:"autoscaling_min_capacity"`
	MaxCapacity         int    `context:"autoscaling_max_capacity"`
	TargetInvocations   int    `context:"autoscaling_target_invocations"`
	ScaleInCooldownSec  int    `context:"autoscaling_scale_in_cooldown"`
	ScaleOutCooldownSec int    `context:"autoscaling_scale_out_cooldown"`
}

// DefaultConfig returns the whisper-medium speech model.
func DefaultConfig() Config {
	return Config{
		ModelID:             "openai/whisper-medium",
		Task:                "automatic-speech-recognition",
		ImageTag:            "2.0.0-transformers4.28.1-gpu-py310-cu118-ubuntu20.04",
		EndpointName:        "hf-asr-realtime-endpoint",
		InstanceType:        "ml.g4dn.xlarge",
		InitialInstances:    1,
		MinCapacity:         1,
		MaxCapacity:         2,
		TargetInvocations:   70,
		ScaleInCooldownSec:  600,
		ScaleOutCooldownSec: 300,
	}
}

// Validate checks the model, task and instance settings.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs,
		config.Required("hugging_face_model_id", c.ModelID),
		config.Required("hugging_face_task", c.Task),
		config.Required("sagemaker_endpoint_name", c.EndpointName),
		config.Required("sagemaker_instance_type", c.InstanceType),
	)
	if c.Image == "" && c.ImageTag == "" {
		errs = append(errs, errors.New(`one of context keys "hugging_face_image" or "hugging_face_image_tag" is required`))
	}
	if c.InitialInstances < 1 {
		errs = append(errs, errors.New(`context key "sagemaker_initial_instance_count" must be at least 1`))
	}
	if c.MinCapacity < 1 || c.MaxCapacity < c.MinCapacity {
		errs = append(errs, fmt.Errorf("autoscaling capacity must satisfy 1 <= min <= max, got min=%d max=%d",
			c.MinCapacity, c.MaxCapacity))
	}
	if c.TargetInvocations <= 0 {
		errs = append(errs, errors.New(`context key "autoscaling_target_invocations" must be positive`))
	}
	return errors.Join(errs...)
}
