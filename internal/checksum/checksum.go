package checksum

import (
	"encoding/base64"
	"fmt"
	"hash/crc64"
	"io"
	"os"
)

const bufferSize = 64 * 1024 // 64KB buffer

// CRC64NVME polynomial (reflected) as used by S3 full-object checksums
var crc64NVMETable = crc64.MakeTable(0x9a6c9329ac4bc9b5)

// CalculateFileCRC64NVME calculates the CRC64NVME checksum of a file and
// returns it base64 encoded, the same format S3 reports in HeadObject.
func CalculateFileCRC64NVME(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return CalculateCRC64NVME(file)
}

// CalculateCRC64NVME calculates the CRC64NVME checksum of r, base64 encoded
func CalculateCRC64NVME(r io.Reader) (string, error) {
	hash := crc64.New(crc64NVMETable)
	if _, err := io.CopyBuffer(hash, r, make([]byte, bufferSize)); err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	return base64.StdEncoding.EncodeToString(hash.Sum(nil)), nil
}

// Equal compares a local checksum with one reported by S3. An empty remote
// checksum never matches, since the object was stored without one.
func Equal(local, remote string) bool {
	return remote != "" && local == remote
}
