package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"github.com/yuya-takeyama/site-s3-sync/pkg/syncerr"
)

// CloudFormationAPI is the subset of the CloudFormation client used here.
type CloudFormationAPI interface {
	DescribeStacks(
		ctx context.Context,
		params *cloudformation.DescribeStacksInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.DescribeStacksOutput, error)
}

// StackOutputs resolves output keys of a single CloudFormation stack. The
// outputs are fetched once and shared by every caller.
type StackOutputs struct {
	api       CloudFormationAPI
	stackName string

	once    sync.Once
	outputs map[string]string
	err     error
}

func NewStackOutputs(api CloudFormationAPI, stackName string) *StackOutputs {
	return &StackOutputs{api: api, stackName: stackName}
}

func (s *StackOutputs) Resolve(ctx context.Context, outputKey string) (string, error) {
	s.once.Do(func() {
		s.outputs, s.err = s.load(ctx)
	})
	if s.err != nil {
		return "", s.err
	}

	value, ok := s.outputs[outputKey]
	if !ok {
		return "", fmt.Errorf("output %q of stack %s: %w", outputKey, s.stackName, syncerr.ErrNotFound)
	}
	return value, nil
}

func (s *StackOutputs) load(ctx context.Context) (map[string]string, error) {
	out, err := s.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(s.stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("describe stack %s: %w", s.stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("stack %s: %w", s.stackName, syncerr.ErrNotFound)
	}

	outputs := make(map[string]string, len(out.Stacks[0].Outputs))
	for _, o := range out.Stacks[0].Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs, nil
}
