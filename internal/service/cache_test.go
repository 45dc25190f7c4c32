package service

import (
	"testing"
	"time"
)

func TestCodeCache(t *testing.T) {
	c := NewCodeCache(2, time.Minute)

	if _, ok := c.Get("qr_1.png"); ok {
		t.Fatal("пустой кэш не должен содержать записей")
	}

	c.Set("qr_1.png", []byte("one"))
	c.Set("qr_2.png", []byte("two"))
	if data, ok := c.Get("qr_1.png"); !ok || string(data) != "one" {
		t.Errorf("Get(qr_1.png): получено %q, %v", data, ok)
	}

	// Вытеснение наименее используемой записи (qr_2.png)
	c.Set("qr_3.png", []byte("three"))
	if c.Len() != 2 {
		t.Errorf("Len: ожидалось 2, получено %d", c.Len())
	}
	if _, ok := c.Get("qr_2.png"); ok {
		t.Error("qr_2.png должен быть вытеснен")
	}

	c.Delete("qr_1.png")
	if _, ok := c.Get("qr_1.png"); ok {
		t.Error("qr_1.png должен быть удалён")
	}
}

func TestCodeCache_TTL(t *testing.T) {
	c := NewCodeCache(4, 20*time.Millisecond)
	c.Set("qr_1.png", []byte("one"))

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("qr_1.png"); ok {
		t.Error("запись должна истечь")
	}
}
