package sagemaker

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
)

const (
	// DefaultRegistryAccount hosts the deep learning containers in most regions.
	DefaultRegistryAccount = "763104351884"
	ImageRepository        = "huggingface-pytorch-inference"
)

var registryAccounts = map[string]string{
	"af-south-1":     "626614931356",
	"ap-east-1":      "871362719292",
	"ap-southeast-3": "907027046896",
	"cn-north-1":     "727897471807",
	"cn-northwest-1": "727897471807",
	"eu-south-1":     "692866216735",
	"il-central-1":   "780543022126",
	"me-central-1":   "914824155844",
	"me-south-1":     "217643126080",
	"us-gov-east-1":  "446045086412",
	"us-gov-west-1":  "442386744353",
}

// RegistryAccount returns the ECR account serving the Hugging Face
// containers in region.
func RegistryAccount(region string) string {
	if acct, ok := registryAccounts[region]; ok {
		return acct
	}
	return DefaultRegistryAccount
}

// ImageURI resolves the container image for the model. An explicit image
// wins. For an environment-agnostic stack the region is a deploy-time
// token and the default registry account is used.
func ImageURI(stack awscdk.Stack, cfg Config) string {
	if cfg.Image != "" {
		return cfg.Image
	}
	region := *stack.Region()
	account, suffix := DefaultRegistryAccount, *awscdk.Aws_URL_SUFFIX()
	if !*awscdk.Token_IsUnresolved(region) {
		account, suffix = RegistryAccount(region), urlSuffix(region)
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.%s/%s:%s",
		account, region, suffix, ImageRepository, cfg.ImageTag)
}

func urlSuffix(region string) string {
	if strings.HasPrefix(region, "cn-") {
		return "amazonaws.com.cn"
	}
	return "amazonaws.com"
}
