package resolver_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/tfs-testcase-exporter/internal/resolver"
)

var _ = DescribeTable("NormalizeText",
	func(in, want string) {
		Expect(resolver.NormalizeText(in)).To(Equal(want))
	},
	Entry("empty", "", ""),
	Entry("plain text", "See dashboard", "See dashboard"),
	Entry("markup", "<DIV><P>Open <B>app</B></P></DIV>", "Open app"),
	Entry("escaped markup is decoded then stripped", "Enter &lt;b&gt;username&lt;/b&gt;", "Enter username"),
	Entry("entities", "Tom &amp; Jerry&#39;s", "Tom & Jerry's"),
	Entry("non breaking space", "Open&nbsp;app", "Open\u00a0app"),
	Entry("surrounding whitespace", "  <P> padded </P>\n", "padded"),
	Entry("tag spanning lines", "<DIV\nclass=\"x\">text</DIV>", "text"),
	Entry("comparison spanning lines reads as a tag", "x < 5 and\ny > 3", "x  3"),
)
