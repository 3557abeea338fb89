package checksum_test

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/frahmantamala/gym-membership/internal/core/checksum"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestChecksum(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Checksum Suite")
}

var _ = Describe("Checksum", func() {
	salt := checksum.Salt{Key: "099eb0cd-02cf-4e2a-8aca-3e6c6aff0399", Index: "1"}

	Describe("Sign", func() {
		It("hashes base64(payload) + path + key and appends the salt index", func() {
			payload := []byte(`{"merchantId":"M1","amount":150000}`)
			encoded := base64.StdEncoding.EncodeToString(payload)
			sum := sha256.Sum256([]byte(encoded + "/pg/v1/pay" + salt.Key))

			sig := checksum.Sign(payload, "/pg/v1/pay", salt)

			Expect(sig).To(Equal(hex.EncodeToString(sum[:]) + "###1"))
		})

		It("signs an empty payload with the path only", func() {
			sum := sha256.Sum256([]byte("/pg/v1/status/M1/GYM1" + salt.Key))
			Expect(checksum.Sign(nil, "/pg/v1/status/M1/GYM1", salt)).To(Equal(hex.EncodeToString(sum[:]) + "###1"))
		})

		It("is deterministic for struct payloads", func() {
			type body struct {
				MerchantID string `json:"merchantId"`
				Amount     int64  `json:"amount"`
			}
			a, err := checksum.Encode(body{MerchantID: "M1", Amount: 100})
			Expect(err).NotTo(HaveOccurred())
			b, err := checksum.Encode(body{MerchantID: "M1", Amount: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
			Expect(checksum.SignEncoded(a, "/pg/v1/pay", salt)).To(Equal(checksum.SignEncoded(b, "/pg/v1/pay", salt)))
		})
	})

	Describe("Verify", func() {
		payloads := [][]byte{
			[]byte(`{}`),
			[]byte(`{"response":"eyJzdWNjZXNzIjp0cnVlfQ=="}`),
			[]byte("plain text body"),
			{0x00, 0xff, 0x10, 0x7f},
		}

		It("accepts every payload it signed", func() {
			for _, p := range payloads {
				sig := checksum.Sign(p, "", salt)
				Expect(checksum.Verify(sig, p, salt)).To(BeTrue(), string(p))
			}
		})

		It("rejects any single-byte mutation of the body", func() {
			body := []byte(`{"response":"eyJjb2RlIjoiUEFZTUVOVF9TVUNDRVNTIn0="}`)
			sig := checksum.Sign(body, "", salt)

			for i := range body {
				mutated := append([]byte(nil), body...)
				mutated[i] ^= 0x01
				Expect(checksum.Verify(sig, mutated, salt)).To(BeFalse(), "byte %d", i)
			}
		})

		It("rejects a signature made with another salt key", func() {
			body := []byte(`{"a":1}`)
			sig := checksum.Sign(body, "", checksum.Salt{Key: "other", Index: "1"})
			Expect(checksum.Verify(sig, body, salt)).To(BeFalse())
		})

		It("rejects a signature carrying a different salt index", func() {
			body := []byte(`{"a":1}`)
			sig := checksum.Sign(body, "", checksum.Salt{Key: salt.Key, Index: "2"})
			Expect(checksum.Verify(sig, body, salt)).To(BeFalse())
		})

		It("rejects empty headers", func() {
			Expect(checksum.Verify("", []byte(`{}`), salt)).To(BeFalse())
			Expect(checksum.Verify("   ", []byte(`{}`), salt)).To(BeFalse())
		})

		It("binds the endpoint path when one is given", func() {
			body := []byte(`{"a":1}`)
			sig := checksum.Sign(body, "/pg/v1/pay", salt)
			Expect(checksum.VerifyPath(sig, body, "/pg/v1/pay", salt)).To(BeTrue())
			Expect(checksum.VerifyPath(sig, body, "/pg/v1/refund", salt)).To(BeFalse())
		})
	})
})
