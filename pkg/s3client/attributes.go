package s3client

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
)

// objectHeaders is the typed form of rule attributes. Attribute keys that are
// not S3 object headers become user metadata (x-amz-meta-*).
type objectHeaders struct {
	ContentType             *string
	CacheControl            *string
	ContentDisposition      *string
	ContentEncoding         *string
	ContentLanguage         *string
	WebsiteRedirectLocation *string
	SSEKMSKeyId             *string
	Expires                 *time.Time
	ACL                     types.ObjectCannedACL
	StorageClass            types.StorageClass
	ServerSideEncryption    types.ServerSideEncryption
	Metadata                map[string]string
}

func parseHeaders(acl string, attrs rules.Attributes) (objectHeaders, error) {
	h := objectHeaders{ACL: types.ObjectCannedACL(acl)}

	for key, value := range attrs {
		switch key {
		case "ContentType":
			h.ContentType = aws.String(value)
		case "CacheControl":
			h.CacheControl = aws.String(value)
		case "ContentDisposition":
			h.ContentDisposition = aws.String(value)
		case "ContentEncoding":
			h.ContentEncoding = aws.String(value)
		case "ContentLanguage":
			h.ContentLanguage = aws.String(value)
		case "WebsiteRedirectLocation":
			h.WebsiteRedirectLocation = aws.String(value)
		case "SSEKMSKeyId":
			h.SSEKMSKeyId = aws.String(value)
		case "Expires":
			t, err := parseExpires(value)
			if err != nil {
				return h, err
			}
			h.Expires = &t
		case "ACL":
			h.ACL = types.ObjectCannedACL(value)
		case "StorageClass":
			h.StorageClass = types.StorageClass(value)
		case "ServerSideEncryption":
			h.ServerSideEncryption = types.ServerSideEncryption(value)
		default:
			if h.Metadata == nil {
				h.Metadata = map[string]string{}
			}
			h.Metadata[key] = value
		}
	}

	if h.ACL != "" && !slices.Contains(h.ACL.Values(), h.ACL) {
		return h, fmt.Errorf("unknown ACL %q", h.ACL)
	}
	if h.StorageClass != "" && !slices.Contains(h.StorageClass.Values(), h.StorageClass) {
		return h, fmt.Errorf("unknown StorageClass %q", h.StorageClass)
	}
	return h, nil
}

func parseExpires(value string) (time.Time, error) {
	if t, err := http.ParseTime(value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid Expires %q: use an HTTP date or RFC 3339", value)
	}
	return t, nil
}

func (h objectHeaders) applyPut(in *s3.PutObjectInput) {
	in.ContentType = h.ContentType
	in.CacheControl = h.CacheControl
	in.ContentDisposition = h.ContentDisposition
	in.ContentEncoding = h.ContentEncoding
	in.ContentLanguage = h.ContentLanguage
	in.WebsiteRedirectLocation = h.WebsiteRedirectLocation
	in.SSEKMSKeyId = h.SSEKMSKeyId
	in.Expires = h.Expires
	in.ACL = h.ACL
	in.StorageClass = h.StorageClass
	in.ServerSideEncryption = h.ServerSideEncryption
	in.Metadata = h.Metadata
}

func (h objectHeaders) applyCopy(in *s3.CopyObjectInput) {
	in.ContentType = h.ContentType
	in.CacheControl = h.CacheControl
	in.ContentDisposition = h.ContentDisposition
	in.ContentEncoding = h.ContentEncoding
	in.ContentLanguage = h.ContentLanguage
	in.WebsiteRedirectLocation = h.WebsiteRedirectLocation
	in.SSEKMSKeyId = h.SSEKMSKeyId
	in.Expires = h.Expires
	in.ACL = h.ACL
	in.StorageClass = h.StorageClass
	in.ServerSideEncryption = h.ServerSideEncryption
	in.Metadata = h.Metadata
}
